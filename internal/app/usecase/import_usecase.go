package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/infra/sink"
)

// ImportResult reports what an import stored.
type ImportResult struct {
	Run     *execution.Run
	Trials  int
	Skipped int
}

// ImportUseCase turns existing benchmark output files into stored runs.
type ImportUseCase struct {
	runRepo RunRepository
	log     *slog.Logger
}

// NewImportUseCase creates a new import use case.
func NewImportUseCase(runRepo RunRepository, log *slog.Logger) *ImportUseCase {
	return &ImportUseCase{
		runRepo: runRepo,
		log:     log.With(slog.String("component", "import")),
	}
}

// ImportFile imports the benchmark output file at path.
func (uc *ImportUseCase) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return uc.Import(ctx, f, path)
}

// Import reads trial lines from r into one completed run of kind import.
// Lines that do not parse are counted and skipped.
func (uc *ImportUseCase) Import(ctx context.Context, r io.Reader, source string) (*ImportResult, error) {
	trials, skipped, err := sink.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if len(trials) == 0 {
		return nil, fmt.Errorf("%s: %w", source, sink.ErrMalformedLine)
	}

	run := execution.NewRun(execution.KindImport, source, "", "")
	_ = run.SetState(execution.StateLoading)
	_ = run.SetState(execution.StateRunning)
	now := time.Now()
	for _, t := range trials {
		t.CreatedAt = now
		t.Iteration = 1
		run.AddTrial(t)
	}
	if err := run.SetState(execution.StateCompleted); err != nil {
		return nil, err
	}

	if err := uc.runRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	uc.log.Info("imported", slog.String("run_id", run.ID), slog.String("source", source),
		slog.Int("trials", len(trials)), slog.Int("skipped", skipped))
	return &ImportResult{Run: run, Trials: len(trials), Skipped: skipped}, nil
}
