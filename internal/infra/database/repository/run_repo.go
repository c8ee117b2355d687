// Package repository implements the use case repositories on SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

var (
	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("run not found")
)

// Fixed-width UTC timestamps keep created_at ordering lexical.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteRunRepository implements usecase.RunRepository on the history database.
type SQLiteRunRepository struct {
	db *sql.DB
}

// NewSQLiteRunRepository creates a new SQLite run repository.
func NewSQLiteRunRepository(db *sql.DB) *SQLiteRunRepository {
	return &SQLiteRunRepository{db: db}
}

var _ usecase.RunRepository = (*SQLiteRunRepository)(nil)

// Save upserts the run row and rewrites its trials in one transaction.
func (r *SQLiteRunRepository) Save(ctx context.Context, run *execution.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (
			id, kind, data_source, observation_table, location_map_table, state,
			created_at, started_at, completed_at, load_ms, load_memory_mb, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			load_ms = excluded.load_ms,
			load_memory_mb = excluded.load_memory_mb,
			error_message = excluded.error_message
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		run.DataSource,
		run.Observation,
		run.LocationMap,
		string(run.State),
		run.CreatedAt.UTC().Format(timeLayout),
		formatTime(run.StartedAt),
		formatTime(run.CompletedAt),
		run.LoadMs,
		run.LoadMemoryMB,
		nullString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trials WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear trials: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (
			run_id, seq, query, temporal_range, spatial_range, iteration,
			elapsed_ms, memory_mb, rows_returned, sql_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range run.Trials {
		var spatial any
		if t.SpatialRange != nil {
			spatial = *t.SpatialRange
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, t.Seq, t.Query, t.TemporalRange, spatial, t.Iteration,
			t.ElapsedMs, t.MemoryMB, t.Rows, t.SQL, t.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("save trial %d: %w", t.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FindByID finds a run by its ID and loads its trials.
func (r *SQLiteRunRepository) FindByID(ctx context.Context, id string) (*execution.Run, error) {
	rows, err := r.db.QueryContext(ctx, selectRuns+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	var run *execution.Run
	if rows.Next() {
		run, err = scanRun(rows)
	}
	if err == nil {
		err = rows.Err()
	}
	rows.Close()
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	trials, err := r.trials(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Trials = trials
	return run, nil
}

// FindAll lists runs with optional filtering and pagination. Trials are not loaded.
func (r *SQLiteRunRepository) FindAll(ctx context.Context, opts usecase.FindOptions) ([]*execution.Run, error) {
	query := selectRuns + ` WHERE 1=1`
	args := []interface{}{}

	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if opts.StateFilter != nil {
		query += " AND state = ?"
		args = append(args, string(*opts.StateFilter))
	}

	sortOrder := "DESC"
	if opts.SortOrder == "ASC" {
		sortOrder = "ASC"
	}
	query += " ORDER BY created_at " + sortOrder

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*execution.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Delete deletes a run by its ID. Trials cascade.
func (r *SQLiteRunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *SQLiteRunRepository) trials(ctx context.Context, runID string) ([]execution.Trial, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, query, temporal_range, spatial_range, iteration,
		       elapsed_ms, memory_mb, rows_returned, sql_text, created_at
		FROM trials
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []execution.Trial
	for rows.Next() {
		t := execution.Trial{RunID: runID}
		var spatial sql.NullFloat64
		var createdAt string
		err := rows.Scan(
			&t.Seq, &t.Query, &t.TemporalRange, &spatial, &t.Iteration,
			&t.ElapsedMs, &t.MemoryMB, &t.Rows, &t.SQL, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if spatial.Valid {
			t.SpatialRange = execution.Fraction(spatial.Float64)
		}
		if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse trial created_at: %w", err)
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

const selectRuns = `
	SELECT id, kind, data_source, observation_table, location_map_table, state,
	       created_at, started_at, completed_at, load_ms, load_memory_mb, error_message
	FROM runs`

// scanRun scans a run from a database row.
func scanRun(rows *sql.Rows) (*execution.Run, error) {
	var run execution.Run
	var kind, state, createdAt string
	var startedAt, completedAt, errMsg sql.NullString

	err := rows.Scan(
		&run.ID,
		&kind,
		&run.DataSource,
		&run.Observation,
		&run.LocationMap,
		&state,
		&createdAt,
		&startedAt,
		&completedAt,
		&run.LoadMs,
		&run.LoadMemoryMB,
		&errMsg,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Kind = execution.Kind(kind)
	run.State = execution.RunState(state)
	run.ErrorMessage = errMsg.String

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	return &run, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
