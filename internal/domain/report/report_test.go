package report

import (
	"errors"
	"testing"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

func TestReportFormat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		format  ReportFormat
		wantErr bool
	}{
		{name: "markdown", format: FormatMarkdown},
		{name: "json", format: FormatJSON},
		{name: "html is not offered", format: ReportFormat("html"), wantErr: true},
		{name: "empty", format: ReportFormat(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportFormat_FileExtension(t *testing.T) {
	if got := FormatMarkdown.FileExtension(); got != ".md" {
		t.Errorf("markdown extension = %q", got)
	}
	if got := FormatJSON.FileExtension(); got != ".json" {
		t.Errorf("json extension = %q", got)
	}
}

func sweepRun() *execution.Run {
	run := execution.NewRun(execution.KindSweep, "mem", "CH37H", "LOCMAP_S")
	for _, trg := range []int{1, 2} {
		run.AddTrial(execution.Trial{Query: "Query1", TemporalRange: trg, ElapsedMs: float64(10 * trg), MemoryMB: 100})
		run.AddTrial(execution.Trial{Query: "Query2", TemporalRange: trg, SpatialRange: execution.Fraction(0.5), ElapsedMs: float64(20 * trg), MemoryMB: 120})
	}
	return run
}

func TestGenerateContext_Validate(t *testing.T) {
	if err := (&GenerateContext{Config: DefaultConfig(FormatJSON)}).Validate(); !errors.Is(err, ErrNoRun) {
		t.Errorf("Validate() without run = %v, want ErrNoRun", err)
	}
	if err := NewGenerateContext(sweepRun(), nil).Validate(); err == nil {
		t.Error("Validate() without config should fail")
	}
	if err := NewGenerateContext(sweepRun(), DefaultConfig(FormatMarkdown)).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestGenerateContext_Series(t *testing.T) {
	ctx := NewGenerateContext(sweepRun(), DefaultConfig(FormatMarkdown))

	if got := ctx.Queries(); len(got) != 2 || got[0] != "Query1" || got[1] != "Query2" {
		t.Fatalf("Queries() = %v", got)
	}

	labels, elapsed, memory := ctx.Series("Query2")
	if len(labels) != 2 || labels[0] != "1y x0.5" || labels[1] != "2y x0.5" {
		t.Errorf("labels = %v", labels)
	}
	if elapsed[0] != 20 || elapsed[1] != 40 {
		t.Errorf("elapsed = %v", elapsed)
	}
	if memory[1] != 120 {
		t.Errorf("memory = %v", memory)
	}
}

func TestGenerateContext_Duration(t *testing.T) {
	run := sweepRun()
	ctx := NewGenerateContext(run, DefaultConfig(FormatMarkdown))
	if got := ctx.GetDuration(); got != "N/A" {
		t.Errorf("GetDuration() before start = %q", got)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	run.StartedAt, run.CompletedAt = &start, &end
	if got := ctx.GetDuration(); got != "1.5s" {
		t.Errorf("GetDuration() = %q, want 1.5s", got)
	}
}
