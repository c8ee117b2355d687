package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/report"
)

func TestReportUseCase_GenerateAndSave(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepository()
	run := storedRun(t, repo, "sweep", time.Now())
	dir := t.TempDir()
	uc := NewReportUseCase(repo, dir)

	rpt, err := uc.GenerateReport(ctx, run.ID, nil, []float64{151, 200, 249})
	require.NoError(t, err)
	assert.Equal(t, report.FormatMarkdown, rpt.Format)
	assert.Contains(t, string(rpt.Content), "### BT distribution")

	path, err := uc.Save(rpt, "")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "penguinbm_"+run.ID[:8]))
	assert.True(t, strings.HasSuffix(path, ".md"))
	assert.Equal(t, path, rpt.FilePath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rpt.Content, data)
}

func TestReportUseCase_JSONToExplicitPath(t *testing.T) {
	repo := NewMemoryRunRepository()
	run := storedRun(t, repo, "manual", time.Now())
	uc := NewReportUseCase(repo, t.TempDir())

	rpt, err := uc.GenerateReport(context.Background(), run.ID, report.DefaultConfig(report.FormatJSON), nil)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out", "run.json")
	path, err := uc.Save(rpt, target)
	require.NoError(t, err)
	assert.Equal(t, target, path)
	assert.FileExists(t, target)
}

func TestReportUseCase_Errors(t *testing.T) {
	repo := NewMemoryRunRepository()
	uc := NewReportUseCase(repo, t.TempDir())

	_, err := uc.GenerateReport(context.Background(), "missing", nil, nil)
	assert.ErrorIs(t, err, ErrBenchmarkNotFound)

	run := storedRun(t, repo, "manual", time.Now())
	_, err = uc.GenerateReportFromRun(run, report.DefaultConfig("pdf"), nil)
	assert.Error(t, err)
}
