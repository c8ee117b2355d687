package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
)

func TestMarkdownGenerator_Format(t *testing.T) {
	assert.Equal(t, report.FormatMarkdown, NewMarkdownGenerator().Format())
}

func TestMarkdownGenerator_Generate(t *testing.T) {
	run := testRun()
	data := report.NewGenerateContext(run, report.DefaultConfig(report.FormatMarkdown))
	data.Values = []float64{151, 170, 190, 210, 249}

	r, err := NewMarkdownGenerator().Generate(data)
	require.NoError(t, err)
	content := string(r.Content)

	assert.Equal(t, run.ID, r.RunID)
	assert.True(t, strings.HasPrefix(content, "# Benchmark Report - "+run.ID))
	assert.Contains(t, content, "- **Status**: ✅ completed")
	assert.Contains(t, content, "- **Tables**: CH37H, LOCMAP_S")
	assert.Contains(t, content, "| Query2 | 2 | 0.5 | 1 | 30.000 |")
	assert.Contains(t, content, "### Query1 over temporal range")
	assert.Contains(t, content, "### BT distribution")
	assert.Contains(t, content, "| 4 | Query2 | 2 | 0.5 | 1 | 30.000 | 110.000 | 180 |")
	assert.NotContains(t, content, "### Statements")
}

func TestMarkdownGenerator_Options(t *testing.T) {
	cfg := report.DefaultConfig(report.FormatMarkdown)
	cfg.IncludeCharts = false
	cfg.IncludeSQL = true
	cfg.Title = "Sweep 1990"

	r, err := NewMarkdownGenerator().Generate(report.NewGenerateContext(testRun(), cfg))
	require.NoError(t, err)
	content := string(r.Content)

	assert.True(t, strings.HasPrefix(content, "# Sweep 1990\n"))
	assert.NotContains(t, content, "## Charts")
	assert.Contains(t, content, "### Statements")
	assert.Contains(t, content, "1. `SELECT * FROM CH37H t1")
}

func TestMarkdownGenerator_FailedRun(t *testing.T) {
	run := execution.NewRun(execution.KindManual, "mem", "CH37H", "LOCMAP_S")
	run.Fail(execution.StateFailed, errors.New("no such table: CH37H"))

	r, err := NewMarkdownGenerator().Generate(report.NewGenerateContext(run, report.DefaultConfig(report.FormatMarkdown)))
	require.NoError(t, err)
	content := string(r.Content)

	assert.Contains(t, content, "❌ failed")
	assert.Contains(t, content, "- **Error**: no such table: CH37H")
	assert.Contains(t, content, "*No trials recorded*")
}

func TestMarkdownGenerator_InvalidContext(t *testing.T) {
	_, err := NewMarkdownGenerator().Generate(&report.GenerateContext{Config: report.DefaultConfig(report.FormatMarkdown)})
	assert.ErrorIs(t, err, report.ErrNoRun)
}
