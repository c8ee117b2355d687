package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

func TestSpecFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   specFlags
		want    query.Mode
		wantErr error
	}{
		{
			name:  "temporal continuous",
			flags: specFlags{mode: "temporal", continuity: "con", start: "1990-01-01", end: "1990-12-31", month: "all", values: "150,250"},
			want:  query.ModeTemporal,
		},
		{
			name:  "spatial ignores temporal flags",
			flags: specFlags{mode: "2", continuity: "bogus", rows: "0 10", cols: "0 10", values: "150 250"},
			want:  query.ModeSpatial,
		},
		{
			name:  "combo discrete",
			flags: specFlags{mode: "combo", continuity: "dis", years: "2002 2003", month: "06", rows: "0,10", cols: "0,10", values: "150,250"},
			want:  query.ModeCombo,
		},
		{
			name:    "unknown mode",
			flags:   specFlags{mode: "4"},
			wantErr: query.ErrInvalidMode,
		},
		{
			name:    "missing values",
			flags:   specFlags{mode: "spatial", rows: "0,10", cols: "0,10"},
			wantErr: query.ErrMalformedRange,
		},
		{
			name:    "missing end date",
			flags:   specFlags{mode: "temporal", continuity: "con", start: "1990-01-01", values: "1,2"},
			wantErr: query.ErrMissingField,
		},
		{
			name:    "inverted rows",
			flags:   specFlags{mode: "spatial", rows: "10,0", cols: "0,10", values: "1,2"},
			wantErr: query.ErrMalformedRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.flags.spec()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Mode)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	log := slog.New(newMultiHandler(slog.LevelInfo, &a, &b)).With(slog.String("component", "test"))

	log.Debug("hidden")
	log.Info("shown", slog.Int("n", 1))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.Contains(t, buf.String(), "component=test")
	}
}

// testEnv points every configured path into a temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PENGUIN_DS_TYPE", "sqlite")
	t.Setenv("PENGUIN_DS_PATH", filepath.Join(dir, "penguin.db"))
	t.Setenv("PENGUIN_HISTORY_DB", filepath.Join(dir, "history.db"))
	t.Setenv("PENGUIN_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("PENGUIN_KEYRING_DIR", filepath.Join(dir, "keyring"))
	t.Setenv("PENGUIN_REPORT_OUTPUT_DIR", filepath.Join(dir, "reports"))
	t.Setenv("PENGUIN_BENCH_OUTPUT_FILE", filepath.Join(dir, "benchmark_output.txt"))
	t.Setenv("PENGUIN_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, a := newRootCmd()
	defer a.close()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionNeedsNoConfig(t *testing.T) {
	t.Setenv("PENGUIN_DS_TYPE", "nonsense")
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "PenguinBM v"+Version)
}

func TestRootCmd_CloseAfterFailure(t *testing.T) {
	testEnv(t)

	root, a := newRootCmd()
	root.SetArgs([]string{"history", "show", "no-such-run"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	require.Error(t, root.ExecuteContext(context.Background()))

	require.NotNil(t, a.logFile)
	assert.NotEmpty(t, a.closers)

	a.close()
	assert.Nil(t, a.logFile)
	assert.Empty(t, a.closers)
	assert.NotPanics(t, a.close)
}

func TestSQLCommand(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "sql", "--mode", "combo", "--continuity", "dis", "--years", "2002 2003",
		"--rows", "0,10", "--cols", "0,10", "--values", "150,250")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM CH37H t1, LOCMAP_S t2 WHERE t1.LOCID = t2.ID AND (YEAR(t1.DATE) = '2002' OR YEAR(t1.DATE) = '2003')"+
			" AND t2.ROW < 10 AND t2.ROW > 0 AND t2.COL < 10 AND t2.COL > 0 AND t1.BT>150 AND t1.BT<250\n",
		out)

	out, err = execute(t, "sql", "--mode", "spatial", "--rows", "0,10", "--cols", "0,10", "--values", "150,250",
		"--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, "$1")

	_, err = execute(t, "sql", "--mode", "spatial", "--rows", "10,0", "--cols", "0,10", "--values", "150,250")
	assert.ErrorIs(t, err, query.ErrMalformedRange)
}

var runIDPattern = regexp.MustCompile(`Run ([0-9a-f-]{36}) \((\w+)\) (\w+)`)

func TestBenchmarkWorkflow(t *testing.T) {
	dir := testEnv(t)

	out, err := execute(t, "seed", "--rows", "6", "--cols", "6", "--years", "2", "--day-step", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "36 locations")

	out, err = execute(t, "run", "--mode", "combo", "--start", "1990-01-01", "--end", "1990-12-31",
		"--rows", "0,4", "--cols", "0,4", "--values", "100,300", "-n", "2", "--report", "markdown")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Query  Temporal_Range  1  Spatial_Range  NA  Time "))
	m := runIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 4)
	runID := m[1]
	assert.Equal(t, "manual", m[2])
	assert.Equal(t, "completed", m[3])
	assert.Contains(t, out, "Report written to "+filepath.Join(dir, "reports"))

	lines, err := os.ReadFile(filepath.Join(dir, "benchmark_output.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(lines), "\n"))

	out, err = execute(t, "sweep", "--start-year", "1990", "--ranges", "1,2", "--fractions", "1,0.5", "--no-output")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Query1  Temporal_Range"))
	assert.Equal(t, 4, strings.Count(out, "Query2  Temporal_Range"))

	out, err = execute(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "sweep")

	out, err = execute(t, "history", "show", runID, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "manual"`)

	reportPath := filepath.Join(dir, "run.json")
	_, err = execute(t, "report", runID, "-f", "json", "-o", reportPath)
	require.NoError(t, err)
	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), runID)

	out, err = execute(t, "import", filepath.Join(dir, "benchmark_output.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "(import) completed")

	out, err = execute(t, "history", "delete", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run "+runID)

	_, err = execute(t, "history", "show", runID)
	assert.Error(t, err)
}

func TestConnTestAndPassword(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "seed", "--rows", "2", "--cols", "2", "--years", "1", "--day-step", "120")
	require.NoError(t, err)

	out, err := execute(t, "conn", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "OK in")

	root, a := newRootCmd()
	defer a.close()
	var buf bytes.Buffer
	root.SetArgs([]string{"conn", "set-password", "ds", "--stdin"})
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader("s3cret\n"))
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), `Password stored under "ds"`)
}
