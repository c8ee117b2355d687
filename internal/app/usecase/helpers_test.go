package usecase

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/connection"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/infra/dataset"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
)

var testTables = query.Tables{Observation: "CH37H", LocationMap: "LOCMAP_S"}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedMemory reports a constant resident size.
type fixedMemory float64

func (m fixedMemory) MemoryMB(context.Context) (float64, error) { return float64(m), nil }

// seededOpener seeds a 6x6 grid over 1990-1992 into a temp SQLite file and
// returns an opener for it.
func seededOpener(t *testing.T) EngineOpener {
	t.Helper()
	ctx := context.Background()

	conn := &connection.SQLiteConnection{
		BaseConnection: connection.BaseConnection{Name: "test"},
		Path:           filepath.Join(t.TempDir(), "penguin.db"),
	}
	e, err := engine.Open(ctx, conn, engine.DefaultOptions(), discard())
	require.NoError(t, err)

	opts := dataset.DefaultOptions(testTables)
	opts.Rows, opts.Cols, opts.Years, opts.DayStep = 6, 6, 3, 60
	_, err = dataset.Seed(ctx, e.DB(), e.Dialect(), opts, discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	return ConnectionOpener(conn, engine.DefaultOptions(), discard())
}

// unreachableOpener points at a SQLite file in a directory that does not
// exist, so every open fails.
func unreachableOpener(t *testing.T) EngineOpener {
	t.Helper()
	conn := &connection.SQLiteConnection{
		BaseConnection: connection.BaseConnection{Name: "unreachable"},
		Path:           filepath.Join(t.TempDir(), "missing", "penguin.db"),
	}
	opts := engine.DefaultOptions()
	opts.Attempts = 1
	return ConnectionOpener(conn, opts, discard())
}

func continuousSpec(t *testing.T, mode query.Mode, start, end string) query.Spec {
	t.Helper()
	span, err := query.NewDateSpan(start, end)
	require.NoError(t, err)
	return query.Spec{
		Mode:       mode,
		Continuity: query.Continuous,
		Dates:      &span,
		Month:      query.MonthAll,
		Rows:       &query.IntRange{Min: 0, Max: 4},
		Cols:       &query.IntRange{Min: 0, Max: 4},
		Values:     &query.ValueRange{Min: 150, Max: 250},
	}
}
