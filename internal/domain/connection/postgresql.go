package connection

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	_ "github.com/lib/pq" // Register PostgreSQL driver

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// PostgreSQLConnection represents a PostgreSQL data source.
type PostgreSQLConnection struct {
	BaseConnection
	networkFields

	Database string `json:"database"`

	// SSLMode: disable/allow/prefer/require/verify-ca/verify-full
	SSLMode string `json:"ssl_mode"`
}

// GetType returns DatabaseTypePostgreSQL.
func (c *PostgreSQLConnection) GetType() DatabaseType {
	return DatabaseTypePostgreSQL
}

// DriverName returns the lib/pq driver name.
func (c *PostgreSQLConnection) DriverName() string {
	return "postgres"
}

// Dialect returns the postgres statement dialect.
func (c *PostgreSQLConnection) Dialect() string {
	return query.DialectPostgres
}

// GetDSN generates a connection string without password (for logging).
func (c *PostgreSQLConnection) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s", c.Host, c.Port, c.Database, c.Username)
}

// GetDSNWithPassword generates a complete connection string with password.
func (c *PostgreSQLConnection) GetDSNWithPassword() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, sslMode)
}

// Redact returns "name (***@host:port/database)".
func (c *PostgreSQLConnection) Redact() string {
	return fmt.Sprintf("%s (***@%s:%d/%s)", c.Name, c.Host, c.Port, c.Database)
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate validates the connection parameters.
func (c *PostgreSQLConnection) Validate() error {
	var result *multierror.Error

	if err := ValidateRequired("name", c.Name); err != nil {
		result = multierror.Append(result, err)
	}
	result = c.networkFields.validate(result)
	if err := ValidateRequired("database", c.Database); err != nil {
		result = multierror.Append(result, err)
	}
	if c.SSLMode != "" && !validSSLModes[c.SSLMode] {
		result = multierror.Append(result, &ValidationError{
			Field:   "ssl_mode",
			Message: "ssl_mode must be one of: disable, allow, prefer, require, verify-ca, verify-full",
			Value:   c.SSLMode,
		})
	}

	return result.ErrorOrNil()
}

// Test pings the server and reads version().
func (c *PostgreSQLConnection) Test(ctx context.Context) (*TestResult, error) {
	return probe(ctx, c.DriverName(), c.GetDSNWithPassword(), "SELECT version()")
}
