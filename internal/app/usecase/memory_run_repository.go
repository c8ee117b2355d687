package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
)

// MemoryRunRepository keeps runs in process. Used when the history database
// is disabled and in tests.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*execution.Run
}

// NewMemoryRunRepository creates a new in-memory run repository.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*execution.Run)}
}

var _ RunRepository = (*MemoryRunRepository)(nil)

// Save stores a copy of run.
func (r *MemoryRunRepository) Save(ctx context.Context, run *execution.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = cloneRun(run, true)
	return nil
}

// FindByID returns a copy of the run with its trials.
func (r *MemoryRunRepository) FindByID(ctx context.Context, id string) (*execution.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrBenchmarkNotFound
	}
	return cloneRun(run, true), nil
}

// FindAll applies the same filters and ordering as the SQLite repository.
func (r *MemoryRunRepository) FindAll(ctx context.Context, opts FindOptions) ([]*execution.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var runs []*execution.Run
	for _, run := range r.runs {
		if opts.Kind != "" && run.Kind != opts.Kind {
			continue
		}
		if opts.StateFilter != nil && run.State != *opts.StateFilter {
			continue
		}
		runs = append(runs, cloneRun(run, false))
	}

	sort.Slice(runs, func(i, j int) bool {
		if opts.SortOrder == "ASC" {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(runs) {
			return nil, nil
		}
		runs = runs[opts.Offset:]
	}
	if opts.Limit > 0 && len(runs) > opts.Limit {
		runs = runs[:opts.Limit]
	}
	return runs, nil
}

// Delete deletes a run by its ID.
func (r *MemoryRunRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return ErrBenchmarkNotFound
	}
	delete(r.runs, id)
	return nil
}

func cloneRun(run *execution.Run, withTrials bool) *execution.Run {
	c := *run
	c.Trials = nil
	if withTrials && len(run.Trials) > 0 {
		c.Trials = append([]execution.Trial(nil), run.Trials...)
	}
	return &c
}
