package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/infra/sink"
)

const benchmarkOutput = `Query1  Temporal_Range  1  Spatial_Range   NA  Time 812.33 Memory  96.5
Query2  Temporal_Range  1  Spatial_Range   0.5  Time 1290.1 Memory  100
Query Time 10.2 Memory 3
Query1  Temporal_Range  2  Spatial_Range   NA  Time 1500 Memory  97.25
`

func TestImportUseCase_Import(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepository()
	uc := NewImportUseCase(repo, discard())

	res, err := uc.Import(ctx, strings.NewReader(benchmarkOutput), "benchmark_output.txt")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Trials)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, execution.KindImport, res.Run.Kind)
	assert.Equal(t, execution.StateCompleted, res.Run.State)

	stored, err := repo.FindByID(ctx, res.Run.ID)
	require.NoError(t, err)
	require.Len(t, stored.Trials, 3)
	assert.Equal(t, "0.5", stored.Trials[1].SpatialLabel())
	assert.InDelta(t, 1290.1, stored.Trials[1].ElapsedMs, 1e-9)
	assert.Equal(t, 3, stored.Trials[2].Seq)
}

func TestImportUseCase_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte(benchmarkOutput), 0o644))

	uc := NewImportUseCase(NewMemoryRunRepository(), discard())
	res, err := uc.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Run.DataSource)

	_, err = uc.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestImportUseCase_NothingToImport(t *testing.T) {
	uc := NewImportUseCase(NewMemoryRunRepository(), discard())
	_, err := uc.Import(context.Background(), strings.NewReader("garbage\n\n"), "x")
	assert.ErrorIs(t, err, sink.ErrMalformedLine)
}
