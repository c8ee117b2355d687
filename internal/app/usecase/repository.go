// Package usecase orchestrates benchmark runs, queries, history and reports.
// Interfaces here are implemented by the infrastructure layer.
package usecase

import (
	"context"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// RunRepository persists benchmark runs together with their trials.
type RunRepository interface {
	// Save inserts or updates the run and replaces its trials.
	Save(ctx context.Context, run *execution.Run) error

	// FindByID returns the run with its trials in sequence order.
	FindByID(ctx context.Context, id string) (*execution.Run, error)

	// FindAll returns runs without trials, newest first unless opts say otherwise.
	FindAll(ctx context.Context, opts FindOptions) ([]*execution.Run, error)

	// Delete removes the run and its trials.
	Delete(ctx context.Context, id string) error
}

// FindOptions filters and pages FindAll.
type FindOptions struct {
	Limit       int
	Offset      int
	Kind        execution.Kind
	StateFilter *execution.RunState
	SortOrder   string // ASC or DESC
}
