package usecase

import (
	"context"
	"log/slog"

	"github.com/whhaicheng/PenguinBM/internal/domain/connection"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
)

// Engine is the query session a benchmark drives.
type Engine interface {
	Dialect() string
	Load(ctx context.Context, tables ...string) ([]engine.TableInfo, error)
	Query(ctx context.Context, stmt query.Statement) (*engine.Table, error)
	Close() error
}

// EngineOpener opens a fresh engine session.
type EngineOpener interface {
	Open(ctx context.Context) (Engine, error)
}

// EngineOpenerFunc adapts a function to EngineOpener.
type EngineOpenerFunc func(ctx context.Context) (Engine, error)

// Open calls f.
func (f EngineOpenerFunc) Open(ctx context.Context) (Engine, error) {
	return f(ctx)
}

// ConnectionOpener opens engines on conn.
func ConnectionOpener(conn connection.Connection, opts engine.Options, log *slog.Logger) EngineOpener {
	return EngineOpenerFunc(func(ctx context.Context) (Engine, error) {
		e, err := engine.Open(ctx, conn, opts, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// TrialSink receives every trial as it completes.
type TrialSink interface {
	Write(t execution.Trial) error
}

// statementFor prefers the parameterized form and falls back to literal SQL
// for engines without a placeholder dialect.
func statementFor(spec query.Spec, tables query.Tables, dialect string) (query.Statement, error) {
	if dialect == "" {
		return query.BuildStatement(spec, tables)
	}
	return query.Parameterize(spec, tables, dialect)
}
