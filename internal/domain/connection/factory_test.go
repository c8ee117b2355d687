package connection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/config"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DataSourceConfig
		wantType DatabaseType
		wantDSN  string
	}{
		{
			name:     "sqlite",
			cfg:      config.DataSourceConfig{Type: config.SourceSQLite, Path: "/data/p.db"},
			wantType: DatabaseTypeSQLite,
			wantDSN:  "file:/data/p.db?_pragma=busy_timeout(5000)",
		},
		{
			name:     "mysql",
			cfg:      config.DataSourceConfig{Type: config.SourceMySQL, Host: "h", Port: 3306, Database: "d", Username: "u"},
			wantType: DatabaseTypeMySQL,
			wantDSN:  "u@tcp(h:3306)/d",
		},
		{
			name:     "postgresql",
			cfg:      config.DataSourceConfig{Type: config.SourcePostgreSQL, Host: "h", Port: 5432, Database: "d", Username: "u"},
			wantType: DatabaseTypePostgreSQL,
			wantDSN:  "host=h port=5432 dbname=d user=u",
		},
		{
			name:     "sqlserver",
			cfg:      config.DataSourceConfig{Type: config.SourceSQLServer, Host: "h", Port: 1433, Database: "d", Username: "u"},
			wantType: DatabaseTypeSQLServer,
			wantDSN:  "sqlserver://u@h:1433?database=d",
		},
		{
			name:     "oracle",
			cfg:      config.DataSourceConfig{Type: config.SourceOracle, Host: "h", Port: 1521, Database: "XE", Username: "u"},
			wantType: DatabaseTypeOracle,
			wantDSN:  "oracle://u@h:1521/XE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := FromConfig("ds", tt.cfg, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, conn.GetType())
			assert.Equal(t, tt.wantDSN, conn.GetDSN())
			assert.Equal(t, "ds", conn.GetName())
		})
	}
}

func TestFromConfig_PasswordOverride(t *testing.T) {
	cfg := config.DataSourceConfig{Type: config.SourceMySQL, Host: "h", Port: 3306, Database: "d", Username: "u", Password: "from-file"}

	conn, err := FromConfig("ds", cfg, "")
	require.NoError(t, err)
	assert.Contains(t, conn.GetDSNWithPassword(), "u:from-file@")

	conn, err = FromConfig("ds", cfg, "from-keyring")
	require.NoError(t, err)
	assert.Contains(t, conn.GetDSNWithPassword(), "u:from-keyring@")
}

func TestFromConfig_Errors(t *testing.T) {
	_, err := FromConfig("ds", config.DataSourceConfig{Type: "h2"}, "")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = FromConfig("ds", config.DataSourceConfig{Type: config.SourceMySQL, Port: 3306}, "")
	require.Error(t, err)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}
