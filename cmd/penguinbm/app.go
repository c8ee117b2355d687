package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/config"
	"github.com/whhaicheng/PenguinBM/internal/domain/connection"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/infra/database"
	"github.com/whhaicheng/PenguinBM/internal/infra/database/repository"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
	"github.com/whhaicheng/PenguinBM/internal/infra/keyring"
	"github.com/whhaicheng/PenguinBM/internal/infra/profile"
	"github.com/whhaicheng/PenguinBM/internal/infra/tunnel"
)

// keyringPassphraseEnv overrides the default keyring passphrase.
const keyringPassphraseEnv = config.EnvPrefix + "KEYRING_PASSPHRASE"

type globalOptions struct {
	configPath string
	logLevel   string
}

// app holds what every command shares once the config is loaded.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile *os.File
	closers []func()
}

// newRootCmd builds the command tree. The caller closes the returned app
// once Execute returns, whether or not the command failed.
func newRootCmd() (*cobra.Command, *app) {
	var opts globalOptions
	a := &app{}

	root := &cobra.Command{
		Use:   "penguinbm",
		Short: "PenguinBM - brightness temperature query builder and benchmark",
		Long: `Build temporal, spatial and combined queries over a channel table and its
location map, time them against a data source, and serve an interactive demo.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(opts, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML); PENGUIN_* variables override it")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newSQLCmd(a),
		newRunCmd(a),
		newSweepCmd(a),
		newServeCmd(a),
		newSeedCmd(a),
		newHistoryCmd(a),
		newReportCmd(a),
		newImportCmd(a),
		newConnCmd(a),
		newVersionCmd(),
	)
	return root, a
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("PenguinBM v%s\n", Version)
		},
	}
}

// init loads the config and sets up logging to stderr and the dated log file.
func (a *app) init(opts globalOptions, console io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.Advanced.LogLevel
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}

	writers := []io.Writer{console}
	if cfg.Advanced.LogDir != "" {
		f, err := openLogFile(cfg.Advanced.LogDir, time.Now())
		if err != nil {
			return err
		}
		a.logFile = f
		writers = append(writers, f)
	}

	a.log = slog.New(newMultiHandler(level, writers...))
	slog.SetDefault(a.log)
	a.log.Debug("PenguinBM started", slog.String("version", Version), slog.String("config", opts.configPath))
	return nil
}

// onClose registers fn to run when the command finishes, last first.
func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

func (a *app) tables() query.Tables {
	return query.Tables{
		Observation: a.cfg.DataSource.ObservationTable,
		LocationMap: a.cfg.DataSource.LocationMapTable,
	}
}

func (a *app) engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.QueryTimeout = a.cfg.Advanced.QueryTimeout
	return opts
}

func (a *app) keyring() (*keyring.FileStore, error) {
	return keyring.NewFileStore(a.cfg.Advanced.KeyringDir, os.Getenv(keyringPassphraseEnv))
}

// connection builds the configured data source, resolving its password
// through the keyring and opening the SSH tunnel when enabled.
func (a *app) connection(ctx context.Context) (connection.Connection, error) {
	ds := a.cfg.DataSource

	var provider keyring.Provider
	if ds.PasswordKey != "" {
		store, err := a.keyring()
		if err != nil {
			return nil, err
		}
		provider = store
	}
	password, err := keyring.Resolve(ctx, provider, ds.PasswordKey, ds.Password)
	if err != nil {
		return nil, err
	}

	conn, err := connection.FromConfig("default", ds, password)
	if err != nil {
		return nil, err
	}

	t, err := tunnel.Redirect(ctx, ds.SSH, conn, a.log)
	if err != nil {
		return nil, fmt.Errorf("ssh tunnel: %w", err)
	}
	if t != nil {
		a.onClose(func() { t.Close() })
	}
	return conn, nil
}

func (a *app) opener(ctx context.Context) (usecase.EngineOpener, connection.Connection, error) {
	conn, err := a.connection(ctx)
	if err != nil {
		return nil, nil, err
	}
	return usecase.ConnectionOpener(conn, a.engineOptions(), a.log), conn, nil
}

// memory returns the process RSS sampler, or nil when it is unavailable.
func (a *app) memory() profile.MemorySampler {
	s, err := profile.NewSampler()
	if err != nil {
		a.log.Warn("memory sampling disabled", slog.Any("error", err))
		return nil
	}
	return s
}

func (a *app) runRepository(ctx context.Context) (*repository.SQLiteRunRepository, error) {
	db, err := a.historyDB(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteRunRepository(db), nil
}

func (a *app) historyDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.InitializeSQLite(ctx, a.cfg.Advanced.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	a.onClose(func() { db.Close() })
	return db, nil
}

func (a *app) promptHistoryFile() string {
	return filepath.Join(filepath.Dir(a.cfg.Advanced.HistoryDB), "prompt_history")
}
