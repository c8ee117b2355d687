// Package config provides configuration domain models.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfiguration is returned when configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConfigNotFound is returned when an explicit config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
)

// EnvPrefix prefixes every environment override, e.g. PENGUIN_DS_TYPE.
const EnvPrefix = "PENGUIN_"

// Data source types.
const (
	SourceSQLite     = "sqlite"
	SourceMySQL      = "mysql"
	SourcePostgreSQL = "postgresql"
	SourceSQLServer  = "sqlserver"
	SourceOracle     = "oracle"
)

// SSHConfig describes an optional tunnel in front of a remote data source.
type SSHConfig struct {
	Enabled   bool   `yaml:"enabled" env:"SSH_ENABLED"`
	Host      string `yaml:"host" env:"SSH_HOST"`
	Port      int    `yaml:"port" env:"SSH_PORT"`
	Username  string `yaml:"username" env:"SSH_USER"`
	Password  string `yaml:"password,omitempty" env:"SSH_PASSWORD"`
	KeyPath   string `yaml:"key_path,omitempty" env:"SSH_KEY_PATH"`
	LocalPort int    `yaml:"local_port,omitempty" env:"SSH_LOCAL_PORT"`
}

// Validate validates the tunnel settings.
func (c *SSHConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var result *multierror.Error
	if c.Host == "" {
		result = multierror.Append(result, fmt.Errorf("%w: ssh host is required", ErrInvalidConfiguration))
	}
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("%w: ssh port must be between 1 and 65535", ErrInvalidConfiguration))
	}
	if c.Username == "" {
		result = multierror.Append(result, fmt.Errorf("%w: ssh username is required", ErrInvalidConfiguration))
	}
	if c.Password == "" && c.KeyPath == "" {
		result = multierror.Append(result, fmt.Errorf("%w: ssh password or key_path is required", ErrInvalidConfiguration))
	}
	return result.ErrorOrNil()
}

// DataSourceConfig points at the database holding the observation and
// location-map tables.
type DataSourceConfig struct {
	// Type is one of sqlite, mysql, postgresql, sqlserver, oracle.
	Type string `yaml:"type" env:"DS_TYPE"`

	// Path is the database file for sqlite.
	Path string `yaml:"path,omitempty" env:"DS_PATH"`

	Host     string `yaml:"host,omitempty" env:"DS_HOST"`
	Port     int    `yaml:"port,omitempty" env:"DS_PORT"`
	Database string `yaml:"database,omitempty" env:"DS_DATABASE"`
	Username string `yaml:"username,omitempty" env:"DS_USER"`

	// Password is used as is; PasswordKey resolves through the keyring instead.
	Password    string `yaml:"password,omitempty" env:"DS_PASSWORD"`
	PasswordKey string `yaml:"password_key,omitempty" env:"DS_PASSWORD_KEY"`

	// SSLMode is passed to drivers that understand it.
	SSLMode string `yaml:"ssl_mode,omitempty" env:"DS_SSL_MODE"`

	// ObservationTable is the channel table, e.g. CH37H.
	ObservationTable string `yaml:"observation_table" env:"DS_OBSERVATION_TABLE"`

	// LocationMapTable maps location ids to grid rows and columns.
	LocationMapTable string `yaml:"location_map_table" env:"DS_LOCATION_MAP_TABLE"`

	SSH SSHConfig `yaml:"ssh"`
}

// Validate validates the data source configuration.
func (c *DataSourceConfig) Validate() error {
	var result *multierror.Error

	switch c.Type {
	case SourceSQLite:
		if c.Path == "" {
			result = multierror.Append(result, fmt.Errorf("%w: path is required for sqlite", ErrInvalidConfiguration))
		}
	case SourceMySQL, SourcePostgreSQL, SourceSQLServer, SourceOracle:
		if c.Host == "" {
			result = multierror.Append(result, fmt.Errorf("%w: host is required for %s", ErrInvalidConfiguration, c.Type))
		}
		if c.Port < 1 || c.Port > 65535 {
			result = multierror.Append(result, fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidConfiguration))
		}
		if c.Database == "" {
			result = multierror.Append(result, fmt.Errorf("%w: database is required for %s", ErrInvalidConfiguration, c.Type))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%w: unknown data source type: %q", ErrInvalidConfiguration, c.Type))
	}

	if c.ObservationTable == "" {
		result = multierror.Append(result, fmt.Errorf("%w: observation_table is required", ErrInvalidConfiguration))
	}
	if c.LocationMapTable == "" {
		result = multierror.Append(result, fmt.Errorf("%w: location_map_table is required", ErrInvalidConfiguration))
	}
	if err := c.SSH.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("ssh: %w", err))
	}

	return result.ErrorOrNil()
}

// BenchmarkConfig drives the manual and sweep benchmarks.
type BenchmarkConfig struct {
	// OutputFile receives one appended line per trial.
	OutputFile string `yaml:"output_file" env:"BENCH_OUTPUT_FILE"`

	// StartYear is the first year of every temporal range.
	StartYear int `yaml:"start_year" env:"BENCH_START_YEAR"`

	// EndYear is the last year present in the data set.
	EndYear int `yaml:"end_year" env:"BENCH_END_YEAR"`

	// TemporalRanges lists the sweep's temporal ranges in years.
	TemporalRanges []int `yaml:"temporal_ranges" env:"BENCH_TEMPORAL_RANGES"`

	GridRows int `yaml:"grid_rows" env:"BENCH_GRID_ROWS"`
	GridCols int `yaml:"grid_cols" env:"BENCH_GRID_COLS"`

	// SpatialFractions lists the sweep's spatial ranges as grid fractions.
	SpatialFractions []float64 `yaml:"spatial_fractions" env:"BENCH_SPATIAL_FRACTIONS"`

	ValueMin float64 `yaml:"value_min" env:"BENCH_VALUE_MIN"`
	ValueMax float64 `yaml:"value_max" env:"BENCH_VALUE_MAX"`

	// Iterations repeats each query; every repetition is one trial.
	Iterations int `yaml:"iterations" env:"BENCH_ITERATIONS"`
}

// Validate validates the benchmark configuration.
func (c *BenchmarkConfig) Validate() error {
	var result *multierror.Error

	if c.OutputFile == "" {
		result = multierror.Append(result, fmt.Errorf("%w: output_file is required", ErrInvalidConfiguration))
	}
	if c.StartYear < 1 || c.EndYear < c.StartYear {
		result = multierror.Append(result, fmt.Errorf("%w: need 1 <= start_year <= end_year", ErrInvalidConfiguration))
	}
	for _, r := range c.TemporalRanges {
		if r < 1 {
			result = multierror.Append(result, fmt.Errorf("%w: temporal range %d must be positive", ErrInvalidConfiguration, r))
		}
	}
	if c.GridRows < 1 || c.GridCols < 1 {
		result = multierror.Append(result, fmt.Errorf("%w: grid_rows and grid_cols must be positive", ErrInvalidConfiguration))
	}
	for _, f := range c.SpatialFractions {
		if f <= 0 || f > 1 {
			result = multierror.Append(result, fmt.Errorf("%w: spatial fraction %g must be in (0, 1]", ErrInvalidConfiguration, f))
		}
	}
	if c.ValueMin >= c.ValueMax {
		result = multierror.Append(result, fmt.Errorf("%w: value_min must be below value_max", ErrInvalidConfiguration))
	}
	if c.Iterations < 1 || c.Iterations > 1000 {
		result = multierror.Append(result, fmt.Errorf("%w: iterations must be between 1 and 1000", ErrInvalidConfiguration))
	}

	return result.ErrorOrNil()
}

// ServerConfig configures the web demo.
type ServerConfig struct {
	Address      string        `yaml:"address" env:"SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: server address is required", ErrInvalidConfiguration)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: server timeouts must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// ReportConfig represents report generation configuration.
type ReportConfig struct {
	// DefaultFormat is the default report format.
	DefaultFormat string `yaml:"default_format" env:"REPORT_FORMAT"`

	// IncludeCharts enables chart generation by default.
	IncludeCharts bool `yaml:"include_charts" env:"REPORT_CHARTS"`

	// ChartWidth is the default width for text-based charts.
	ChartWidth int `yaml:"chart_width" env:"REPORT_CHART_WIDTH"`

	// ChartHeight is the default height for text-based charts.
	ChartHeight int `yaml:"chart_height" env:"REPORT_CHART_HEIGHT"`

	// OutputDir is the default directory for report output.
	OutputDir string `yaml:"output_dir" env:"REPORT_OUTPUT_DIR"`
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	validFormats := map[string]bool{
		"markdown": true,
		"json":     true,
	}

	if !validFormats[c.DefaultFormat] {
		return fmt.Errorf("%w: invalid default format: %s", ErrInvalidConfiguration, c.DefaultFormat)
	}

	if c.ChartWidth < 20 || c.ChartWidth > 200 {
		return fmt.Errorf("%w: chart_width must be between 20 and 200", ErrInvalidConfiguration)
	}

	if c.ChartHeight < 5 || c.ChartHeight > 50 {
		return fmt.Errorf("%w: chart_height must be between 5 and 50", ErrInvalidConfiguration)
	}

	return nil
}

// AdvancedConfig represents advanced configuration.
type AdvancedConfig struct {
	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// LogDir receives the dated log files.
	LogDir string `yaml:"log_dir" env:"LOG_DIR"`

	// HistoryDB is the SQLite file storing benchmark runs.
	HistoryDB string `yaml:"history_db" env:"HISTORY_DB"`

	// KeyringDir holds the encrypted password store.
	KeyringDir string `yaml:"keyring_dir" env:"KEYRING_DIR"`

	// QueryTimeout bounds each submitted statement.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT"`
}

// Validate validates the advanced configuration.
func (c *AdvancedConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.LogLevel] {
		return fmt.Errorf("%w: invalid log level: %s", ErrInvalidConfiguration, c.LogLevel)
	}

	if c.HistoryDB == "" {
		return fmt.Errorf("%w: history_db is required", ErrInvalidConfiguration)
	}

	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query_timeout must be positive", ErrInvalidConfiguration)
	}

	return nil
}

// Config represents the complete application configuration.
type Config struct {
	// Version is the configuration version.
	Version int `yaml:"version"`

	DataSource DataSourceConfig `yaml:"data_source"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark"`
	Server     ServerConfig     `yaml:"server"`
	Reports    ReportConfig     `yaml:"reports"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// Validate validates every section and reports all problems at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Version != 1 {
		result = multierror.Append(result, fmt.Errorf("%w: unsupported configuration version: %d", ErrInvalidConfiguration, c.Version))
	}

	sections := []struct {
		name string
		fn   func() error
	}{
		{"data_source", c.DataSource.Validate},
		{"benchmark", c.Benchmark.Validate},
		{"server", c.Server.Validate},
		{"reports", c.Reports.Validate},
		{"advanced", c.Advanced.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	return result.ErrorOrNil()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	userHomeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(userHomeDir, ".penguinbm")

	return &Config{
		Version: 1,
		DataSource: DataSourceConfig{
			Type:             SourceSQLite,
			Path:             filepath.Join(baseDir, "penguin.db"),
			ObservationTable: "CH37H",
			LocationMapTable: "LOCMAP_S",
			SSH:              SSHConfig{Port: 22},
		},
		Benchmark: BenchmarkConfig{
			OutputFile:       "benchmark_results.txt",
			StartYear:        1990,
			EndYear:          2014,
			TemporalRanges:   []int{1, 2, 4, 8, 16, 25},
			GridRows:         316,
			GridCols:         332,
			SpatialFractions: []float64{1, 0.5, 0.25},
			ValueMin:         150,
			ValueMax:         250,
			Iterations:       1,
		},
		Server: ServerConfig{
			Address:      "127.0.0.1:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Reports: ReportConfig{
			DefaultFormat: "markdown",
			IncludeCharts: true,
			ChartWidth:    60,
			ChartHeight:   10,
			OutputDir:     filepath.Join(baseDir, "reports"),
		},
		Advanced: AdvancedConfig{
			LogLevel:     "info",
			LogDir:       filepath.Join(baseDir, "logs"),
			HistoryDB:    filepath.Join(baseDir, "history.db"),
			KeyringDir:   filepath.Join(baseDir, "keyring"),
			QueryTimeout: 10 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and PENGUIN_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfiguration, path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalidConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
