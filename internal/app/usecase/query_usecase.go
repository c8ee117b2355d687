package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
	"github.com/whhaicheng/PenguinBM/internal/infra/profile"
)

// QueryResult is the outcome of one interactive query.
type QueryResult struct {
	SQL       string    `json:"sql"`
	Rows      int       `json:"rows"`
	Values    []float64 `json:"values"`
	LoadMs    float64   `json:"load_ms"`
	ElapsedMs float64   `json:"elapsed_ms"`
	MemoryMB  float64   `json:"memory_mb"`
}

// QueryUseCase answers one-off queries, such as the web demo's, with a fresh
// engine session per call.
type QueryUseCase struct {
	opener EngineOpener
	memory profile.MemorySampler
	tables query.Tables
	log    *slog.Logger
}

// NewQueryUseCase creates a new query use case.
func NewQueryUseCase(opener EngineOpener, memory profile.MemorySampler, tables query.Tables, log *slog.Logger) *QueryUseCase {
	return &QueryUseCase{
		opener: opener,
		memory: memory,
		tables: tables,
		log:    log.With(slog.String("component", "query")),
	}
}

// Statement renders spec as literal SQL without touching an engine.
func (uc *QueryUseCase) Statement(spec query.Spec) (query.Statement, error) {
	return query.BuildStatement(spec, uc.tables)
}

// Values runs spec and returns the BT column of the result.
// Spec and table errors are returned unwrapped so callers can classify them.
func (uc *QueryUseCase) Values(ctx context.Context, spec query.Spec) (*QueryResult, error) {
	literal, err := query.BuildStatement(spec, uc.tables)
	if err != nil {
		return nil, err
	}

	res, err := uc.run(ctx, literal.SQL, func(dialect string) (query.Statement, error) {
		return statementFor(spec, uc.tables, dialect)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("query",
		slog.String("mode", spec.Mode.String()),
		slog.Int("rows", res.Rows),
		slog.Float64("load_ms", res.LoadMs),
		slog.Float64("elapsed_ms", res.ElapsedMs),
		slog.Float64("memory_mb", res.MemoryMB),
	)
	return res, nil
}

// Replay reruns a recorded literal SELECT, such as a trial's SQL.
func (uc *QueryUseCase) Replay(ctx context.Context, sql string) (*QueryResult, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, &query.FieldError{Field: "sql", Err: query.ErrMissingField}
	}
	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT ") || strings.Contains(sql, ";") {
		return nil, &query.FieldError{Field: "sql", Detail: "only a single SELECT can be replayed", Err: query.ErrInjectionRisk}
	}

	res, err := uc.run(ctx, sql, func(string) (query.Statement, error) {
		return query.Statement{SQL: sql}, nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info("replay", slog.Int("rows", res.Rows), slog.Float64("elapsed_ms", res.ElapsedMs))
	return res, nil
}

// run opens a fresh engine, loads the tables and runs the statement build
// returns for the engine's dialect.
func (uc *QueryUseCase) run(ctx context.Context, literal string, build func(dialect string) (query.Statement, error)) (*QueryResult, error) {
	var eng Engine
	loadMs, err := profile.Measure(func() error {
		var err error
		if eng, err = uc.opener.Open(ctx); err != nil {
			return err
		}
		_, err = eng.Load(ctx, uc.tables.Names()...)
		return err
	})
	if eng != nil {
		defer eng.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}

	stmt, err := build(eng.Dialect())
	if err != nil {
		return nil, err
	}

	var table *engine.Table
	elapsed, err := profile.Measure(func() error {
		var err error
		table, err = eng.Query(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	values, err := table.Floats("BT")
	if err != nil {
		return nil, fmt.Errorf("read BT: %w", err)
	}

	res := &QueryResult{
		SQL:       literal,
		Rows:      table.Len(),
		Values:    values,
		LoadMs:    loadMs,
		ElapsedMs: elapsed,
	}
	if uc.memory != nil {
		if mb, err := uc.memory.MemoryMB(ctx); err == nil {
			res.MemoryMB = mb
		}
	}
	return res, nil
}
