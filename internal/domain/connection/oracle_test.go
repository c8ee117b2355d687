package connection

import (
	"strings"
	"testing"
)

func TestOracleConnection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		conn    *OracleConnection
		wantErr bool
	}{
		{
			name: "valid",
			conn: &OracleConnection{
				BaseConnection: BaseConnection{Name: "ora"},
				networkFields:  networkFields{Host: "ora", Port: 1521, Username: "system"},
				ServiceName:    "ORCLPDB1",
			},
		},
		{
			name: "missing service name",
			conn: &OracleConnection{
				BaseConnection: BaseConnection{Name: "ora"},
				networkFields:  networkFields{Host: "ora", Port: 1521, Username: "system"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.conn.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOracleConnection_DSN(t *testing.T) {
	c := &OracleConnection{
		BaseConnection: BaseConnection{Name: "ora"},
		networkFields:  networkFields{Host: "ora", Port: 1521, Username: "system", Password: "pw"},
		ServiceName:    "ORCLPDB1",
	}

	if got, want := c.GetDSN(), "oracle://system@ora:1521/ORCLPDB1"; got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
	dsn := c.GetDSNWithPassword()
	if !strings.HasPrefix(dsn, "oracle://") || !strings.Contains(dsn, "ora:1521") || !strings.Contains(dsn, "ORCLPDB1") {
		t.Errorf("GetDSNWithPassword() = %q", dsn)
	}
	if c.Dialect() != "" {
		t.Errorf("Dialect() = %q, want literal statements only", c.Dialect())
	}
}
