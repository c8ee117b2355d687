package connection

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/hashicorp/go-multierror"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// MySQLConnection represents a MySQL data source.
type MySQLConnection struct {
	BaseConnection
	networkFields

	Database string `json:"database"`

	// SSLMode is one of disabled, preferred, required.
	SSLMode string `json:"ssl_mode"`
}

// GetType returns DatabaseTypeMySQL.
func (c *MySQLConnection) GetType() DatabaseType {
	return DatabaseTypeMySQL
}

// DriverName returns "mysql".
func (c *MySQLConnection) DriverName() string {
	return "mysql"
}

// Dialect returns the mysql statement dialect.
func (c *MySQLConnection) Dialect() string {
	return query.DialectMySQL
}

// GetDSN generates a connection string without password (for logging).
// Format: username@tcp(host:port)/database
func (c *MySQLConnection) GetDSN() string {
	return fmt.Sprintf("%s@tcp(%s:%d)/%s", c.Username, c.Host, c.Port, c.Database)
}

// GetDSNWithPassword generates a complete connection string with password.
func (c *MySQLConnection) GetDSNWithPassword() string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", c.Username, c.Password, c.Host, c.Port, c.Database)
	switch c.SSLMode {
	case "required":
		dsn += "?tls=true"
	case "preferred":
		dsn += "?tls=preferred"
	}
	return dsn
}

// Redact returns "name (***@host:port/database)".
func (c *MySQLConnection) Redact() string {
	return fmt.Sprintf("%s (***@%s:%d/%s)", c.Name, c.Host, c.Port, c.Database)
}

// Validate validates the connection parameters.
func (c *MySQLConnection) Validate() error {
	var result *multierror.Error

	if err := ValidateRequired("name", c.Name); err != nil {
		result = multierror.Append(result, err)
	}
	result = c.networkFields.validate(result)
	if err := ValidateRequired("database", c.Database); err != nil {
		result = multierror.Append(result, err)
	}

	if c.SSLMode != "" && c.SSLMode != "disabled" && c.SSLMode != "preferred" && c.SSLMode != "required" {
		result = multierror.Append(result, &ValidationError{
			Field:   "ssl_mode",
			Message: "ssl_mode must be one of: disabled, preferred, required",
			Value:   c.SSLMode,
		})
	}

	return result.ErrorOrNil()
}

// Test pings the server and reads VERSION().
func (c *MySQLConnection) Test(ctx context.Context) (*TestResult, error) {
	return probe(ctx, c.DriverName(), c.GetDSNWithPassword(), "SELECT VERSION()")
}
