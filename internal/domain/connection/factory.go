package connection

import (
	"errors"
	"fmt"

	"github.com/whhaicheng/PenguinBM/internal/domain/config"
)

// ErrUnknownType is returned for a data source type with no implementation.
var ErrUnknownType = errors.New("unknown data source type")

// FromConfig builds the connection described by cfg. password overrides
// cfg.Password when non-empty (it usually comes from the keyring).
func FromConfig(name string, cfg config.DataSourceConfig, password string) (Connection, error) {
	if password == "" {
		password = cfg.Password
	}
	nf := networkFields{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: password,
	}
	base := BaseConnection{Name: name}

	var conn Connection
	switch cfg.Type {
	case config.SourceSQLite:
		conn = &SQLiteConnection{BaseConnection: base, Path: cfg.Path}
	case config.SourceMySQL:
		conn = &MySQLConnection{BaseConnection: base, networkFields: nf, Database: cfg.Database, SSLMode: cfg.SSLMode}
	case config.SourcePostgreSQL:
		conn = &PostgreSQLConnection{BaseConnection: base, networkFields: nf, Database: cfg.Database, SSLMode: cfg.SSLMode}
	case config.SourceSQLServer:
		conn = &SQLServerConnection{BaseConnection: base, networkFields: nf, Database: cfg.Database,
			TrustServerCertificate: cfg.SSLMode == "trust"}
	case config.SourceOracle:
		conn = &OracleConnection{BaseConnection: base, networkFields: nf, ServiceName: cfg.Database}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}

	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("%s connection %q: %w", cfg.Type, name, err)
	}
	return conn, nil
}
