// Package engine submits statements to a data source and materializes results.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"github.com/whhaicheng/PenguinBM/internal/domain/connection"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("engine closed")

// Options tune how the engine connects and runs statements.
type Options struct {
	// Attempts is the number of connection attempts.
	Attempts uint

	// RetryDelay is the initial delay between attempts.
	RetryDelay time.Duration

	// QueryTimeout bounds each statement, including reading its rows. Zero
	// disables the bound.
	QueryTimeout time.Duration

	// MaxOpenConns caps the pool; benchmark runs use one connection.
	MaxOpenConns int
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Attempts:     3,
		RetryDelay:   500 * time.Millisecond,
		QueryTimeout: 10 * time.Minute,
		MaxOpenConns: 1,
	}
}

// Engine is an open session against one data source.
type Engine struct {
	db   *sql.DB
	conn connection.Connection
	opts Options
	log  *slog.Logger
}

// TableInfo is the result of loading one table.
type TableInfo struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Open connects to conn and pings it, retrying transient failures.
func Open(ctx context.Context, conn connection.Connection, opts Options, log *slog.Logger) (*Engine, error) {
	log = log.With(slog.String("component", "engine"), slog.String("data_source", conn.Redact()))

	if conn.GetType() == connection.DatabaseTypeSQLite {
		if err := registerDateFunctions(); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(conn.DriverName(), conn.GetDSNWithPassword())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conn.GetType(), err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			return db.PingContext(ctx)
		},
		retry.Attempts(attempts),
		retry.Delay(opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("ping failed, retrying", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", conn.Redact(), err)
	}

	log.Debug("engine open")
	return &Engine{db: db, conn: conn, opts: opts, log: log}, nil
}

// DB exposes the pool for seeding and schema work.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Dialect is the connection's parameterized statement dialect.
func (e *Engine) Dialect() string {
	return e.conn.Dialect()
}

// Load checks that each table exists and counts its rows, warming the
// session the way a register-tables step would.
func (e *Engine) Load(ctx context.Context, tables ...string) ([]TableInfo, error) {
	if e.db == nil {
		return nil, ErrClosed
	}
	start := time.Now()
	infos := make([]TableInfo, 0, len(tables))
	for _, name := range tables {
		if err := query.ValidateIdentifier("table", name); err != nil {
			return nil, err
		}
		var n int64
		if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
			return nil, fmt.Errorf("load table %s: %w", name, err)
		}
		infos = append(infos, TableInfo{Name: name, Rows: n})
	}
	loadDuration.Observe(time.Since(start).Seconds())
	e.log.Info("tables loaded", slog.Any("tables", infos), slog.Duration("elapsed", time.Since(start)))
	return infos, nil
}

// Submit executes stmt and returns its unread rows. The caller must call
// ToLocalTable or Close on the result.
func (e *Engine) Submit(ctx context.Context, stmt query.Statement) (*Rowset, error) {
	if e.db == nil {
		return nil, ErrClosed
	}

	cancel := func() {}
	if e.opts.QueryTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
	}

	start := time.Now()
	mode := stmt.Mode.String()
	e.log.Debug("submit", slog.String("mode", mode), slog.String("sql", stmt.SQL), slog.Int("args", len(stmt.Args)))

	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		cancel()
		queryDuration.WithLabelValues(mode, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("submit %s query: %w", mode, err)
	}

	return &Rowset{
		rows:   rows,
		cancel: cancel,
		done: func(n int, err error) {
			status := "ok"
			if err != nil {
				status = "error"
			}
			queryDuration.WithLabelValues(mode, status).Observe(time.Since(start).Seconds())
			rowsReturned.WithLabelValues(mode).Add(float64(n))
		},
	}, nil
}

// Query submits stmt and materializes all rows.
func (e *Engine) Query(ctx context.Context, stmt query.Statement) (*Table, error) {
	rs, err := e.Submit(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return rs.ToLocalTable()
}

// Close releases the session.
func (e *Engine) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}
