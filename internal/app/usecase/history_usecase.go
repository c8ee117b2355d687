package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// HistoryUseCase lists, inspects and deletes stored runs.
type HistoryUseCase struct {
	runRepo RunRepository
	log     *slog.Logger
}

// NewHistoryUseCase creates a new history use case.
func NewHistoryUseCase(runRepo RunRepository, log *slog.Logger) *HistoryUseCase {
	return &HistoryUseCase{
		runRepo: runRepo,
		log:     log.With(slog.String("component", "history")),
	}
}

// List returns runs newest first.
func (uc *HistoryUseCase) List(ctx context.Context, opts FindOptions) ([]*execution.Run, error) {
	runs, err := uc.runRepo.FindAll(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its trials and per-query summaries.
func (uc *HistoryUseCase) Get(ctx context.Context, id string) (*execution.Run, []execution.Summary, error) {
	run, err := uc.runRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, execution.Summarize(run.Trials), nil
}

// Delete removes a run and its trials.
func (uc *HistoryUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.runRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	uc.log.Info("run deleted", slog.String("run_id", id))
	return nil
}
