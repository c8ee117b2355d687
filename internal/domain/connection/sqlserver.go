package connection

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// SQLServerConnection represents a SQL Server data source.
type SQLServerConnection struct {
	BaseConnection
	networkFields

	Database               string `json:"database"`
	TrustServerCertificate bool   `json:"trust_server_certificate"`
}

// GetType returns DatabaseTypeSQLServer.
func (c *SQLServerConnection) GetType() DatabaseType {
	return DatabaseTypeSQLServer
}

// DriverName returns "sqlserver".
func (c *SQLServerConnection) DriverName() string {
	return "sqlserver"
}

// Dialect returns the sqlserver statement dialect.
func (c *SQLServerConnection) Dialect() string {
	return query.DialectSQLServer
}

// GetDSN generates a connection string without password (for logging).
// Format: sqlserver://username@host:port?database=dbname
func (c *SQLServerConnection) GetDSN() string {
	return fmt.Sprintf("sqlserver://%s@%s:%d?database=%s", c.Username, c.Host, c.Port, c.Database)
}

// GetDSNWithPassword generates a complete connection string with password.
func (c *SQLServerConnection) GetDSNWithPassword() string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("trustservercertificate", fmt.Sprintf("%t", c.TrustServerCertificate))
	u.RawQuery = q.Encode()
	return u.String()
}

// Redact returns "name (***@host:port/database)".
func (c *SQLServerConnection) Redact() string {
	return fmt.Sprintf("%s (***@%s:%d/%s)", c.Name, c.Host, c.Port, c.Database)
}

// Validate validates the connection parameters.
func (c *SQLServerConnection) Validate() error {
	var result *multierror.Error

	if err := ValidateRequired("name", c.Name); err != nil {
		result = multierror.Append(result, err)
	}
	result = c.networkFields.validate(result)
	if err := ValidateRequired("database", c.Database); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Test pings the server and reads @@VERSION.
func (c *SQLServerConnection) Test(ctx context.Context) (*TestResult, error) {
	return probe(ctx, c.DriverName(), c.GetDSNWithPassword(), "SELECT @@VERSION")
}
