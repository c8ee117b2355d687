package connection

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// SQLiteConnection is a file-backed data source, or an in-memory one when
// Path is ":memory:".
type SQLiteConnection struct {
	BaseConnection

	Path string `json:"path"`
}

// GetType returns DatabaseTypeSQLite.
func (c *SQLiteConnection) GetType() DatabaseType {
	return DatabaseTypeSQLite
}

// DriverName returns the modernc driver name.
func (c *SQLiteConnection) DriverName() string {
	return "sqlite"
}

// Dialect returns the sqlite3 statement dialect.
func (c *SQLiteConnection) Dialect() string {
	return query.DialectSQLite
}

// GetDSN returns the database file with a busy timeout.
func (c *SQLiteConnection) GetDSN() string {
	if c.Path == ":memory:" {
		return c.Path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", c.Path)
}

// GetDSNWithPassword is GetDSN; SQLite has no credentials.
func (c *SQLiteConnection) GetDSNWithPassword() string {
	return c.GetDSN()
}

// Redact returns "name (file)".
func (c *SQLiteConnection) Redact() string {
	return fmt.Sprintf("%s (%s)", c.Name, filepath.Base(c.Path))
}

// SetPassword is a no-op.
func (c *SQLiteConnection) SetPassword(string) {}

// Validate validates the connection parameters.
func (c *SQLiteConnection) Validate() error {
	var result *multierror.Error
	if err := ValidateRequired("name", c.Name); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateRequired("path", c.Path); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Test opens the database file and reads the SQLite version.
func (c *SQLiteConnection) Test(ctx context.Context) (*TestResult, error) {
	return probe(ctx, c.DriverName(), c.GetDSN(), "SELECT sqlite_version()")
}
