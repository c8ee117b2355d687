// Package report defines benchmark report models.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// ErrNoRun is returned when a report is requested without a run.
var ErrNoRun = errors.New("report needs a run")

// ReportFormat represents the output format for a report.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
)

// String returns the string representation of the format.
func (f ReportFormat) String() string {
	return string(f)
}

// Validate checks if the format is valid.
func (f ReportFormat) Validate() error {
	switch f {
	case FormatMarkdown, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid report format: %s", f)
	}
}

// FileExtension returns the file extension for this format.
func (f ReportFormat) FileExtension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// ReportConfig controls what a generator writes.
type ReportConfig struct {
	Format ReportFormat

	// IncludeCharts adds the elapsed/memory series and the BT histogram.
	IncludeCharts bool

	// IncludeSQL lists the statement of every trial.
	IncludeSQL bool

	ChartWidth  int
	ChartHeight int

	// Title overrides the default "Benchmark Report - <run id>".
	Title string
}

// DefaultConfig returns a default report configuration.
func DefaultConfig(format ReportFormat) *ReportConfig {
	return &ReportConfig{
		Format:        format,
		IncludeCharts: true,
		ChartWidth:    60,
		ChartHeight:   10,
	}
}

// Report is a rendered report.
type Report struct {
	Format      ReportFormat
	Content     []byte
	GeneratedAt time.Time
	RunID       string
	FilePath    string
}

// Generator renders a report in one format.
type Generator interface {
	Generate(ctx *GenerateContext) (*Report, error)
	Format() ReportFormat
}

// GenerateContext is everything a generator may render.
type GenerateContext struct {
	Run       *execution.Run
	Summaries []execution.Summary

	// Values is an optional BT sample for the histogram.
	Values []float64

	Config *ReportConfig
}

// NewGenerateContext summarizes run's trials for config.
func NewGenerateContext(run *execution.Run, config *ReportConfig) *GenerateContext {
	ctx := &GenerateContext{Run: run, Config: config}
	if run != nil {
		ctx.Summaries = execution.Summarize(run.Trials)
	}
	return ctx
}

// Validate validates the generate context.
func (ctx *GenerateContext) Validate() error {
	if ctx.Run == nil || ctx.Run.ID == "" {
		return ErrNoRun
	}
	if ctx.Config == nil {
		return fmt.Errorf("config is required")
	}
	return ctx.Config.Format.Validate()
}

// IsFailed checks if the run failed.
func (ctx *GenerateContext) IsFailed() bool {
	return ctx.Run.ErrorMessage != "" || ctx.Run.State == execution.StateFailed
}

// GetDuration returns the formatted duration string.
func (ctx *GenerateContext) GetDuration() string {
	if d := ctx.Run.Duration(); d > 0 {
		return d.Round(time.Millisecond).String()
	}
	return "N/A"
}

// Series extracts the mean elapsed time and mean memory per temporal range
// for one query, in temporal order of first appearance.
func (ctx *GenerateContext) Series(query string) (labels []string, elapsed, memory []float64) {
	for _, s := range ctx.Summaries {
		if s.Query != query {
			continue
		}
		label := fmt.Sprintf("%dy", s.TemporalRange)
		if s.SpatialRange != "NA" {
			label += " x" + s.SpatialRange
		}
		labels = append(labels, label)
		elapsed = append(elapsed, s.Elapsed.Mean)
		memory = append(memory, s.Memory.Mean)
	}
	return labels, elapsed, memory
}

// Queries returns query names in first-seen order.
func (ctx *GenerateContext) Queries() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ctx.Summaries {
		if !seen[s.Query] {
			seen[s.Query] = true
			out = append(out, s.Query)
		}
	}
	return out
}

// GetTimestamp returns the formatted timestamp for a time pointer.
func GetTimestamp(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(time.RFC3339)
}
