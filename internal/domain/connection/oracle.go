package connection

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	go_ora "github.com/sijms/go-ora/v2"
)

// OracleConnection represents an Oracle data source reached by service name.
type OracleConnection struct {
	BaseConnection
	networkFields

	ServiceName string `json:"service_name"`
}

// GetType returns DatabaseTypeOracle.
func (c *OracleConnection) GetType() DatabaseType {
	return DatabaseTypeOracle
}

// DriverName returns the go-ora driver name.
func (c *OracleConnection) DriverName() string {
	return "oracle"
}

// Dialect is empty: Oracle runs the literal statement form.
func (c *OracleConnection) Dialect() string {
	return ""
}

// GetDSN generates a connection string without password (for logging).
// Format: oracle://username@host:port/service_name
func (c *OracleConnection) GetDSN() string {
	return fmt.Sprintf("oracle://%s@%s:%d/%s", c.Username, c.Host, c.Port, c.ServiceName)
}

// GetDSNWithPassword builds the go-ora URL.
func (c *OracleConnection) GetDSNWithPassword() string {
	return go_ora.BuildUrl(c.Host, c.Port, c.ServiceName, c.Username, c.Password, nil)
}

// Redact returns "name (***@host:port/service)".
func (c *OracleConnection) Redact() string {
	return fmt.Sprintf("%s (***@%s:%d/%s)", c.Name, c.Host, c.Port, c.ServiceName)
}

// Validate validates the connection parameters.
func (c *OracleConnection) Validate() error {
	var result *multierror.Error

	if err := ValidateRequired("name", c.Name); err != nil {
		result = multierror.Append(result, err)
	}
	result = c.networkFields.validate(result)
	if err := ValidateRequired("service_name", c.ServiceName); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Test pings the server and reads the version banner.
func (c *OracleConnection) Test(ctx context.Context) (*TestResult, error) {
	return probe(ctx, c.DriverName(), c.GetDSNWithPassword(),
		"SELECT banner FROM v$version WHERE ROWNUM = 1")
}
