package connection

import (
	"context"
	"strings"
	"testing"
	"time"
)

func validMySQL() *MySQLConnection {
	return &MySQLConnection{
		BaseConnection: BaseConnection{Name: "penguin"},
		networkFields: networkFields{
			Host:     "localhost",
			Port:     3306,
			Username: "root",
			Password: "secret",
		},
		Database: "nsidc",
		SSLMode:  "preferred",
	}
}

// TestMySQLConnection_Validate tests MySQL connection validation with table-driven approach.
func TestMySQLConnection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *MySQLConnection)
		wantErr bool
		errMsg  string
	}{
		{"valid connection", func(c *MySQLConnection) {}, false, ""},
		{"missing name", func(c *MySQLConnection) { c.Name = "" }, true, "name is required"},
		{"missing host", func(c *MySQLConnection) { c.Host = "" }, true, "host is required"},
		{"missing database", func(c *MySQLConnection) { c.Database = "" }, true, "database is required"},
		{"port too low", func(c *MySQLConnection) { c.Port = 0 }, true, "port must be between 1 and 65535"},
		{"port too high", func(c *MySQLConnection) { c.Port = 70000 }, true, "port must be between 1 and 65535"},
		{"invalid ssl mode", func(c *MySQLConnection) { c.SSLMode = "sometimes" }, true, "ssl_mode must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validMySQL()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestMySQLConnection_ValidateReportsAllFields(t *testing.T) {
	c := &MySQLConnection{}
	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for empty connection")
	}
	for _, want := range []string{"name is required", "host is required", "username is required", "database is required", "port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestMySQLConnection_DSN(t *testing.T) {
	c := validMySQL()

	if got, want := c.GetDSN(), "root@tcp(localhost:3306)/nsidc"; got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
	if got, want := c.GetDSNWithPassword(), "root:secret@tcp(localhost:3306)/nsidc?tls=preferred"; got != want {
		t.Errorf("GetDSNWithPassword() = %q, want %q", got, want)
	}
	if strings.Contains(c.Redact(), "secret") || strings.Contains(c.GetDSN(), "secret") {
		t.Error("password leaked into display strings")
	}
	if got, want := c.Redact(), "penguin (***@localhost:3306/nsidc)"; got != want {
		t.Errorf("Redact() = %q, want %q", got, want)
	}
}

func TestMySQLConnection_SetEndpoint(t *testing.T) {
	c := validMySQL()
	var r Remote = c
	r.SetEndpoint("127.0.0.1", 40001)

	host, port := c.Endpoint()
	if host != "127.0.0.1" || port != 40001 {
		t.Errorf("Endpoint() = %s:%d, want 127.0.0.1:40001", host, port)
	}
}

// TestMySQLConnection_TestUnreachable checks that an unreachable server is a
// failed result, not an error.
func TestMySQLConnection_TestUnreachable(t *testing.T) {
	c := validMySQL()
	c.Port = 1
	c.SSLMode = ""

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := c.Test(ctx)
	if err != nil {
		t.Fatalf("Test() unexpected error: %v", err)
	}
	if result.Success {
		t.Error("Test() expected failure for unreachable server")
	}
	if result.Error == "" {
		t.Error("Test() expected error message")
	}
}
