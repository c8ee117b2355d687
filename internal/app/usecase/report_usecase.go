package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/report"
	infrareport "github.com/whhaicheng/PenguinBM/internal/infra/report"
)

// ReportUseCase renders stored runs as reports.
type ReportUseCase struct {
	runRepo   RunRepository
	outputDir string

	generators map[report.ReportFormat]report.Generator
}

// NewReportUseCase creates a new report use case writing into outputDir.
func NewReportUseCase(runRepo RunRepository, outputDir string) *ReportUseCase {
	uc := &ReportUseCase{
		runRepo:    runRepo,
		outputDir:  outputDir,
		generators: make(map[report.ReportFormat]report.Generator),
	}

	uc.RegisterGenerator(infrareport.NewMarkdownGenerator())
	uc.RegisterGenerator(infrareport.NewJSONGenerator())

	return uc
}

// RegisterGenerator registers a report generator.
func (uc *ReportUseCase) RegisterGenerator(generator report.Generator) {
	uc.generators[generator.Format()] = generator
}

// GenerateReport loads a run and renders it. values optionally feeds the BT
// histogram.
func (uc *ReportUseCase) GenerateReport(ctx context.Context, runID string, config *report.ReportConfig, values []float64) (*report.Report, error) {
	run, err := uc.runRepo.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return uc.GenerateReportFromRun(run, config, values)
}

// GenerateReportFromRun renders run without touching storage.
func (uc *ReportUseCase) GenerateReportFromRun(run *execution.Run, config *report.ReportConfig, values []float64) (*report.Report, error) {
	if config == nil {
		config = report.DefaultConfig(report.FormatMarkdown)
	}
	if err := config.Format.Validate(); err != nil {
		return nil, err
	}

	generator, ok := uc.generators[config.Format]
	if !ok {
		return nil, fmt.Errorf("no generator registered for format: %s", config.Format)
	}

	genCtx := report.NewGenerateContext(run, config)
	genCtx.Values = values

	rpt, err := generator.Generate(genCtx)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return rpt, nil
}

// Save writes rpt to path, or to a timestamped file in the output directory
// when path is empty, and records the path on rpt.
func (uc *ReportUseCase) Save(rpt *report.Report, path string) (string, error) {
	if path == "" {
		path = uc.defaultReportPath(rpt.RunID, rpt.Format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, rpt.Content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	rpt.FilePath = path
	return path, nil
}

func (uc *ReportUseCase) defaultReportPath(runID string, format report.ReportFormat) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("penguinbm_%s_%s%s", short, time.Now().Format("20060102_150405"), format.FileExtension())
	return filepath.Join(uc.outputDir, name)
}
