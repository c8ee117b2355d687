package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/whhaicheng/PenguinBM/internal/domain/config"
	"github.com/whhaicheng/PenguinBM/internal/domain/execution"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
	"github.com/whhaicheng/PenguinBM/internal/infra/engine"
	"github.com/whhaicheng/PenguinBM/internal/infra/profile"
)

var (
	// ErrBenchmarkNotFound is returned when a benchmark run is not found.
	ErrBenchmarkNotFound = errors.New("benchmark run not found")

	// ErrNotRunning is returned when cancelling a run that is not in progress.
	ErrNotRunning = errors.New("run is not in progress")

	// ErrEmptySweep is returned when a sweep has no temporal ranges.
	ErrEmptySweep = errors.New("sweep needs at least one temporal range")
)

// Query names written to the output file.
const (
	ManualQuery   = "Query"
	TemporalQuery = "Query1"
	ComboQuery    = "Query2"
)

// RunOptions apply to both manual runs and sweeps.
type RunOptions struct {
	// Iterations per query; values below one mean one.
	Iterations int

	// Sink receives each trial line; nil disables the output file.
	Sink TrialSink

	// OnTrial is called after each trial is recorded.
	OnTrial func(execution.Trial)
}

// SweepOptions describe the automatic temporal x spatial sweep.
type SweepOptions struct {
	StartYear int
	Ranges    []int
	GridRows  int
	GridCols  int
	Fractions []float64
	Values    query.ValueRange
}

// SweepOptionsFromConfig copies the benchmark section.
func SweepOptionsFromConfig(cfg config.BenchmarkConfig) SweepOptions {
	return SweepOptions{
		StartYear: cfg.StartYear,
		Ranges:    cfg.TemporalRanges,
		GridRows:  cfg.GridRows,
		GridCols:  cfg.GridCols,
		Fractions: cfg.SpatialFractions,
		Values:    query.ValueRange{Min: cfg.ValueMin, Max: cfg.ValueMax},
	}
}

// plannedQuery is one statement of a run with the labels its trials carry.
type plannedQuery struct {
	name     string
	spec     query.Spec
	temporal int
	spatial  *float64
}

// BenchmarkUseCase times query statements against one data source.
type BenchmarkUseCase struct {
	opener     EngineOpener
	runRepo    RunRepository
	memory     profile.MemorySampler
	tables     query.Tables
	dataSource string
	log        *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewBenchmarkUseCase creates a new benchmark use case. runRepo may be nil to
// skip history persistence.
func NewBenchmarkUseCase(
	opener EngineOpener,
	runRepo RunRepository,
	memory profile.MemorySampler,
	tables query.Tables,
	dataSource string,
	log *slog.Logger,
) *BenchmarkUseCase {
	return &BenchmarkUseCase{
		opener:     opener,
		runRepo:    runRepo,
		memory:     memory,
		tables:     tables,
		dataSource: dataSource,
		log:        log.With(slog.String("component", "benchmark")),
		running:    make(map[string]context.CancelFunc),
	}
}

// RunQuery benchmarks one configured statement: timed load, then the timed
// query repeated opts.Iterations times.
func (uc *BenchmarkUseCase) RunQuery(ctx context.Context, spec query.Spec, opts RunOptions) (*execution.Run, error) {
	plan := []plannedQuery{{
		name:     ManualQuery,
		spec:     spec,
		temporal: temporalRange(spec),
	}}
	return uc.start(ctx, execution.KindManual, plan, opts)
}

// RunSweep runs Query1 (temporal, continuous) for every temporal range and,
// for each, Query2 (combo) for every spatial fraction of the grid.
func (uc *BenchmarkUseCase) RunSweep(ctx context.Context, sweep SweepOptions, opts RunOptions) (*execution.Run, error) {
	plan, err := planSweep(sweep)
	if err != nil {
		return nil, err
	}
	return uc.start(ctx, execution.KindSweep, plan, opts)
}

// planSweep expands sweep into the ordered query list.
func planSweep(sweep SweepOptions) ([]plannedQuery, error) {
	if len(sweep.Ranges) == 0 {
		return nil, ErrEmptySweep
	}
	values := sweep.Values

	var plan []plannedQuery
	for _, trg := range sweep.Ranges {
		span, err := query.YearSpan(sweep.StartYear, trg)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedQuery{
			name: TemporalQuery,
			spec: query.Spec{
				Mode:       query.ModeTemporal,
				Continuity: query.Continuous,
				Dates:      &span,
				Month:      query.MonthAll,
				Values:     &values,
			},
			temporal: trg,
		})

		for _, srg := range sweep.Fractions {
			rows := query.IntRange{Min: -1, Max: query.GridBound(sweep.GridRows, srg)}
			cols := query.IntRange{Min: -1, Max: query.GridBound(sweep.GridCols, srg)}
			plan = append(plan, plannedQuery{
				name: ComboQuery,
				spec: query.Spec{
					Mode:       query.ModeCombo,
					Continuity: query.Continuous,
					Dates:      &span,
					Month:      query.MonthAll,
					Rows:       &rows,
					Cols:       &cols,
					Values:     &values,
				},
				temporal: trg,
				spatial:  execution.Fraction(srg),
			})
		}
	}
	return plan, nil
}

// Cancel stops an in-progress run. The run ends in the cancelled state.
func (uc *BenchmarkUseCase) Cancel(runID string) error {
	uc.mu.Lock()
	cancel, ok := uc.running[runID]
	uc.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, runID)
	}
	cancel()
	return nil
}

// Running lists the ids of runs in progress.
func (uc *BenchmarkUseCase) Running() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	ids := make([]string, 0, len(uc.running))
	for id := range uc.running {
		ids = append(ids, id)
	}
	return ids
}

func (uc *BenchmarkUseCase) start(ctx context.Context, kind execution.Kind, plan []plannedQuery, opts RunOptions) (*execution.Run, error) {
	if err := uc.tables.Validate(); err != nil {
		return nil, err
	}
	for _, q := range plan {
		if err := q.spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", q.name, err)
		}
	}
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}

	run := execution.NewRun(kind, uc.dataSource, uc.tables.Observation, uc.tables.LocationMap)
	log := uc.log.With(slog.String("run_id", run.ID), slog.String("kind", string(kind)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	uc.track(run.ID, cancel)
	defer uc.untrack(run.ID)

	uc.save(ctx, run, log)
	log.Info("run started", slog.Int("queries", len(plan)), slog.Int("iterations", opts.Iterations))

	err := uc.execute(ctx, run, plan, opts, log)
	if err != nil {
		run.Fail(terminalState(err), err)
		log.Error("run ended", slog.String("state", string(run.State)), slog.Any("error", err))
	} else {
		if e := run.SetState(execution.StateCompleted); e != nil {
			err = e
		}
		log.Info("run completed", slog.Int("trials", len(run.Trials)), slog.Duration("elapsed", run.Duration()))
	}

	// The final state is persisted even when ctx was cancelled.
	uc.save(context.WithoutCancel(ctx), run, log)
	return run, err
}

func (uc *BenchmarkUseCase) execute(ctx context.Context, run *execution.Run, plan []plannedQuery, opts RunOptions, log *slog.Logger) error {
	if err := run.SetState(execution.StateLoading); err != nil {
		return err
	}

	var eng Engine
	loadMs, err := profile.Measure(func() error {
		var err error
		if eng, err = uc.opener.Open(ctx); err != nil {
			return err
		}
		_, err = eng.Load(ctx, uc.tables.Names()...)
		return err
	})
	if eng != nil {
		defer func() {
			if err := eng.Close(); err != nil {
				log.Warn("close engine", slog.Any("error", err))
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	run.LoadMs = loadMs
	run.LoadMemoryMB = uc.sampleMemory(ctx, log)
	log.Info("load data", slog.Float64("elapsed_ms", loadMs), slog.Float64("memory_mb", run.LoadMemoryMB))

	if err := run.SetState(execution.StateRunning); err != nil {
		return err
	}
	uc.save(ctx, run, log)

	for _, q := range plan {
		stmt, err := statementFor(q.spec, uc.tables, eng.Dialect())
		if err != nil {
			return fmt.Errorf("%s: %w", q.name, err)
		}
		literal, err := query.BuildStatement(q.spec, uc.tables)
		if err != nil {
			return fmt.Errorf("%s: %w", q.name, err)
		}

		for i := 1; i <= opts.Iterations; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			var table *engine.Table
			elapsed, err := profile.Measure(func() error {
				var err error
				table, err = eng.Query(ctx, stmt)
				return err
			})
			if err != nil {
				return fmt.Errorf("%s: %w", q.name, err)
			}

			run.AddTrial(execution.Trial{
				Query:         q.name,
				TemporalRange: q.temporal,
				SpatialRange:  q.spatial,
				Iteration:     i,
				ElapsedMs:     elapsed,
				MemoryMB:      uc.sampleMemory(ctx, log),
				Rows:          table.Len(),
				SQL:           literal.SQL,
				CreatedAt:     time.Now(),
			})
			trial := run.Trials[len(run.Trials)-1]

			log.Info("trial",
				slog.String("query", trial.Query),
				slog.Int("temporal_range", trial.TemporalRange),
				slog.String("spatial_range", trial.SpatialLabel()),
				slog.Float64("elapsed_ms", trial.ElapsedMs),
				slog.Float64("memory_mb", trial.MemoryMB),
				slog.Int("rows", trial.Rows),
			)

			if opts.Sink != nil {
				if err := opts.Sink.Write(trial); err != nil {
					return fmt.Errorf("write trial: %w", err)
				}
			}
			if opts.OnTrial != nil {
				opts.OnTrial(trial)
			}
		}
	}
	return nil
}

func (uc *BenchmarkUseCase) sampleMemory(ctx context.Context, log *slog.Logger) float64 {
	if uc.memory == nil {
		return 0
	}
	mb, err := uc.memory.MemoryMB(ctx)
	if err != nil {
		log.Warn("memory sample failed", slog.Any("error", err))
		return 0
	}
	return mb
}

func (uc *BenchmarkUseCase) save(ctx context.Context, run *execution.Run, log *slog.Logger) {
	if uc.runRepo == nil {
		return
	}
	if err := uc.runRepo.Save(ctx, run); err != nil {
		log.Warn("save run", slog.Any("error", err))
	}
}

func (uc *BenchmarkUseCase) track(id string, cancel context.CancelFunc) {
	uc.mu.Lock()
	uc.running[id] = cancel
	uc.mu.Unlock()
}

func (uc *BenchmarkUseCase) untrack(id string) {
	uc.mu.Lock()
	delete(uc.running, id)
	uc.mu.Unlock()
}

// terminalState maps a run error to the state the run ends in.
func terminalState(err error) execution.RunState {
	switch {
	case errors.Is(err, context.Canceled):
		return execution.StateCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return execution.StateTimeout
	default:
		return execution.StateFailed
	}
}

// temporalRange is the number of years a spec covers; zero without a temporal filter.
func temporalRange(spec query.Spec) int {
	if spec.Mode == query.ModeSpatial {
		return 0
	}
	if spec.Continuity == query.Discrete {
		return len(spec.Years)
	}
	if spec.Dates == nil {
		return 0
	}
	return spec.Dates.End.Year() - spec.Dates.Start.Year() + 1
}
