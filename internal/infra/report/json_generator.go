package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
)

// JSONGenerator generates JSON format reports.
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator.
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Generate generates a JSON report.
func (g *JSONGenerator) Generate(data *report.GenerateContext) (*report.Report, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	content, err := json.MarshalIndent(g.buildJSON(data), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}

	return &report.Report{
		Format:      report.FormatJSON,
		Content:     content,
		GeneratedAt: time.Now(),
		RunID:       data.Run.ID,
	}, nil
}

// Format returns the format this generator produces.
func (g *JSONGenerator) Format() report.ReportFormat {
	return report.FormatJSON
}

type jsonReport struct {
	Meta      jsonMeta            `json:"meta"`
	Summary   jsonSummary         `json:"summary"`
	Results   []execution.Summary `json:"results"`
	Trials    []execution.Trial   `json:"trials,omitempty"`
	Histogram []jsonBin           `json:"bt_histogram,omitempty"`
}

type jsonMeta struct {
	RunID       string `json:"run_id"`
	Format      string `json:"format"`
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
}

type jsonSummary struct {
	Status       string  `json:"status"`
	Kind         string  `json:"kind"`
	DataSource   string  `json:"data_source"`
	Observation  string  `json:"observation_table"`
	LocationMap  string  `json:"location_map_table"`
	LoadMs       float64 `json:"load_ms"`
	LoadMemoryMB float64 `json:"load_memory_mb"`
	Duration     string  `json:"duration"`
	StartedAt    string  `json:"started_at,omitempty"`
	CompletedAt  string  `json:"completed_at,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type jsonBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

func (g *JSONGenerator) buildJSON(data *report.GenerateContext) *jsonReport {
	run := data.Run

	summary := jsonSummary{
		Status:       string(run.State),
		Kind:         string(run.Kind),
		DataSource:   run.DataSource,
		Observation:  run.Observation,
		LocationMap:  run.LocationMap,
		LoadMs:       run.LoadMs,
		LoadMemoryMB: run.LoadMemoryMB,
		Duration:     data.GetDuration(),
		Error:        run.ErrorMessage,
	}
	if run.StartedAt != nil {
		summary.StartedAt = report.GetTimestamp(run.StartedAt)
	}
	if run.CompletedAt != nil {
		summary.CompletedAt = report.GetTimestamp(run.CompletedAt)
	}

	trials := run.Trials
	if !data.Config.IncludeSQL {
		trials = make([]execution.Trial, len(run.Trials))
		for i, t := range run.Trials {
			t.SQL = ""
			trials[i] = t
		}
	}

	results := data.Summaries
	if results == nil {
		results = []execution.Summary{}
	}

	return &jsonReport{
		Meta: jsonMeta{
			RunID:       run.ID,
			Format:      report.FormatJSON.String(),
			GeneratedAt: time.Now().Format(time.RFC3339),
			Version:     "1.0",
		},
		Summary:   summary,
		Results:   results,
		Trials:    trials,
		Histogram: histogramBins(data.Values, 20),
	}
}

func histogramBins(values []float64, bins int) []jsonBin {
	if len(values) == 0 {
		return nil
	}
	gen := &ChartGenerator{}
	counts := gen.createHistogram(values, bins)
	min, max := gen.minMax(values)
	width := (max - min) / float64(bins)

	out := make([]jsonBin, bins)
	for i, c := range counts {
		out[i] = jsonBin{Lower: min + width*float64(i), Upper: min + width*float64(i+1), Count: c}
	}
	return out
}
