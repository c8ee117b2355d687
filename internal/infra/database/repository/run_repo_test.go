package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/infra/database"
)

// setupRunTestDB creates an in-memory history database.
func setupRunTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.InitializeSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func completedRun(t *testing.T, created time.Time) *execution.Run {
	t.Helper()

	run := execution.NewRun(execution.KindSweep, "sqlite:///tmp/penguin.db", "CH37H", "LOCMAP_S")
	run.CreatedAt = created
	require.NoError(t, run.SetState(execution.StateLoading))
	run.LoadMs = 12.5
	run.LoadMemoryMB = 48.25
	require.NoError(t, run.SetState(execution.StateRunning))
	run.AddTrial(execution.Trial{
		Query: "Query1", TemporalRange: 1, Iteration: 1,
		ElapsedMs: 3.5, MemoryMB: 50, Rows: 42, SQL: "SELECT 1", CreatedAt: created,
	})
	run.AddTrial(execution.Trial{
		Query: "Query2", TemporalRange: 1, SpatialRange: execution.Fraction(0.5), Iteration: 1,
		ElapsedMs: 7.25, MemoryMB: 51, Rows: 11, SQL: "SELECT 2", CreatedAt: created,
	})
	require.NoError(t, run.SetState(execution.StateCompleted))
	return run
}

func TestSQLiteRunRepository_Save_FindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRunRepository(setupRunTestDB(t))

	run := completedRun(t, time.Now())
	require.NoError(t, repo.Save(ctx, run))

	found, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, found.ID)
	assert.Equal(t, execution.KindSweep, found.Kind)
	assert.Equal(t, execution.StateCompleted, found.State)
	assert.Equal(t, "CH37H", found.Observation)
	assert.Equal(t, "LOCMAP_S", found.LocationMap)
	assert.InDelta(t, 12.5, found.LoadMs, 1e-9)
	assert.WithinDuration(t, run.CreatedAt, found.CreatedAt, time.Microsecond)
	require.NotNil(t, found.StartedAt)
	require.NotNil(t, found.CompletedAt)

	require.Len(t, found.Trials, 2)
	assert.Equal(t, 1, found.Trials[0].Seq)
	assert.Nil(t, found.Trials[0].SpatialRange)
	assert.Equal(t, "Query2", found.Trials[1].Query)
	require.NotNil(t, found.Trials[1].SpatialRange)
	assert.InDelta(t, 0.5, *found.Trials[1].SpatialRange, 1e-9)
	assert.Equal(t, 11, found.Trials[1].Rows)
	assert.Equal(t, run.ID, found.Trials[1].RunID)
}

func TestSQLiteRunRepository_SaveTwiceReplacesTrials(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRunRepository(setupRunTestDB(t))

	run := execution.NewRun(execution.KindManual, "mem", "CH37H", "LOCMAP_S")
	require.NoError(t, repo.Save(ctx, run))

	require.NoError(t, run.SetState(execution.StateLoading))
	require.NoError(t, run.SetState(execution.StateRunning))
	run.AddTrial(execution.Trial{Query: "Query1", TemporalRange: 2, ElapsedMs: 1, CreatedAt: time.Now()})
	run.Fail(execution.StateFailed, errors.New("boom"))
	require.NoError(t, repo.Save(ctx, run))

	found, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.StateFailed, found.State)
	assert.Equal(t, "boom", found.ErrorMessage)
	assert.Len(t, found.Trials, 1)
}

func TestSQLiteRunRepository_FindByID_NotFound(t *testing.T) {
	repo := NewSQLiteRunRepository(setupRunTestDB(t))

	_, err := repo.FindByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteRunRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRunRepository(setupRunTestDB(t))

	now := time.Now()
	older := completedRun(t, now.Add(-2*time.Hour))
	newer := completedRun(t, now.Add(-1*time.Hour))
	manual := execution.NewRun(execution.KindManual, "mem", "CH37H", "LOCMAP_S")
	manual.CreatedAt = now

	for _, run := range []*execution.Run{older, newer, manual} {
		require.NoError(t, repo.Save(ctx, run))
	}

	tests := []struct {
		name string
		opts usecase.FindOptions
		want []string
	}{
		{name: "all newest first", opts: usecase.FindOptions{}, want: []string{manual.ID, newer.ID, older.ID}},
		{name: "ascending", opts: usecase.FindOptions{SortOrder: "ASC"}, want: []string{older.ID, newer.ID, manual.ID}},
		{name: "by kind", opts: usecase.FindOptions{Kind: execution.KindSweep}, want: []string{newer.ID, older.ID}},
		{name: "limit offset", opts: usecase.FindOptions{Limit: 1, Offset: 1}, want: []string{newer.ID}},
	}
	pending := execution.StatePending
	tests = append(tests, struct {
		name string
		opts usecase.FindOptions
		want []string
	}{name: "by state", opts: usecase.FindOptions{StateFilter: &pending}, want: []string{manual.ID}})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.FindAll(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
				assert.Empty(t, r.Trials)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteRunRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := setupRunTestDB(t)
	repo := NewSQLiteRunRepository(db)

	run := completedRun(t, time.Now())
	require.NoError(t, repo.Save(ctx, run))

	require.NoError(t, repo.Delete(ctx, run.ID))

	_, err := repo.FindByID(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trials WHERE run_id = ?`, run.ID).Scan(&n))
	assert.Zero(t, n, "trials cascade with the run")

	assert.ErrorIs(t, repo.Delete(ctx, run.ID), ErrRunNotFound)
}
