// Package connection describes the data sources a benchmark can run against.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DatabaseType represents the type of database.
type DatabaseType string

const (
	DatabaseTypeSQLite     DatabaseType = "sqlite"
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypeOracle     DatabaseType = "oracle"
	DatabaseTypeSQLServer  DatabaseType = "sqlserver"
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
)

// String returns the string representation of the database type.
func (t DatabaseType) String() string {
	return string(t)
}

// Connection is implemented by every supported data source.
type Connection interface {
	// GetName returns the connection name.
	GetName() string

	// GetType returns the database type.
	GetType() DatabaseType

	// DriverName is the database/sql driver registered for this type.
	DriverName() string

	// Dialect is the statement dialect used for parameterized queries.
	// Empty when only literal statements are supported.
	Dialect() string

	// Validate returns every invalid field at once.
	Validate() error

	// Test opens the data source, pings it and reads its version.
	Test(ctx context.Context) (*TestResult, error)

	// GetDSN generates a connection string without password (for logging).
	GetDSN() string

	// GetDSNWithPassword generates the connection string used to connect.
	GetDSNWithPassword() string

	// Redact returns a connection summary safe for display.
	Redact() string

	// SetPassword sets the password resolved from config or the keyring.
	SetPassword(password string)
}

// Remote is implemented by network data sources so a tunnel can redirect them.
type Remote interface {
	Endpoint() (host string, port int)
	SetEndpoint(host string, port int)
}

// TestResult represents the result of a connection test.
type TestResult struct {
	Success         bool   `json:"success"`
	LatencyMs       int64  `json:"latency_ms"`
	DatabaseVersion string `json:"database_version"`
	Error           string `json:"error,omitempty"`
}

// ValidatePort validates that a port number is in valid range (1-65535).
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   "port",
			Message: "port must be between 1 and 65535",
			Value:   port,
		}
	}
	return nil
}

// ValidateRequired validates that a required string field is not empty.
func ValidateRequired(fieldName, value string) error {
	if value == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fieldName + " is required",
		}
	}
	return nil
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Value)
	}
	return e.Message
}

// BaseConnection contains common fields for all connection types.
type BaseConnection struct {
	Name string `json:"name"`
}

// GetName returns the connection name.
func (b *BaseConnection) GetName() string {
	return b.Name
}

// networkFields is shared by the server-based data sources.
type networkFields struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Endpoint returns the host and port the driver connects to.
func (n *networkFields) Endpoint() (string, int) {
	return n.Host, n.Port
}

// SetEndpoint redirects the connection, e.g. to a local tunnel port.
func (n *networkFields) SetEndpoint(host string, port int) {
	n.Host = host
	n.Port = port
}

// SetPassword sets the password.
func (n *networkFields) SetPassword(password string) {
	n.Password = password
}

func (n *networkFields) validate(result *multierror.Error) *multierror.Error {
	if err := ValidateRequired("host", n.Host); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateRequired("username", n.Username); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidatePort(n.Port); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// probe opens driver/dsn, pings it within five seconds and runs versionSQL.
// Connection failures are reported in the result, not as an error.
func probe(ctx context.Context, driver, dsn, versionSQL string) (*TestResult, error) {
	start := time.Now()

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return &TestResult{
			Success:   false,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     fmt.Sprintf("failed to open connection: %v", err),
		}, nil
	}
	defer db.Close()

	testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = db.PingContext(testCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return &TestResult{
			Success:   false,
			LatencyMs: latency,
			Error:     fmt.Sprintf("connection failed: %v", err),
		}, nil
	}

	var version string
	if err := db.QueryRowContext(testCtx, versionSQL).Scan(&version); err != nil {
		version = "unknown"
	}

	return &TestResult{
		Success:         true,
		LatencyMs:       latency,
		DatabaseVersion: version,
	}, nil
}
