package execution

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes a single configured query from a parameter sweep.
type Kind string

const (
	KindManual Kind = "manual"
	KindSweep  Kind = "sweep"
	KindImport Kind = "import"
)

// Run is one benchmark session: one engine, one table load, many trials.
type Run struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// DataSource is the redacted connection the run used.
	DataSource  string `json:"data_source"`
	Observation string `json:"observation_table"`
	LocationMap string `json:"location_map_table"`

	State RunState `json:"state"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LoadMs and LoadMemoryMB profile the table load step.
	LoadMs       float64 `json:"load_ms"`
	LoadMemoryMB float64 `json:"load_memory_mb"`

	Trials       []Trial `json:"trials,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// NewRun creates a pending run with a fresh id.
func NewRun(kind Kind, dataSource, observation, locationMap string) *Run {
	return &Run{
		ID:          uuid.New().String(),
		Kind:        kind,
		DataSource:  dataSource,
		Observation: observation,
		LocationMap: locationMap,
		State:       StatePending,
		CreatedAt:   time.Now(),
	}
}

// SetState sets the state with validation and stamps start/completion times.
func (r *Run) SetState(newState RunState) error {
	if !r.State.CanTransitionTo(newState) {
		return &InvalidStateTransitionError{From: r.State, To: newState}
	}
	now := time.Now()
	if newState == StateLoading {
		r.StartedAt = &now
	}
	if newState.IsTerminal() {
		r.CompletedAt = &now
	}
	r.State = newState
	return nil
}

// Fail moves the run to failed (or the given terminal state) and records err.
// Runs that already ended are left untouched.
func (r *Run) Fail(state RunState, err error) {
	if r.State.IsTerminal() {
		return
	}
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	if r.State == StatePending && state != StateCancelled {
		// pending can only be cancelled; go through loading first
		_ = r.SetState(StateLoading)
	}
	if e := r.SetState(state); e != nil {
		r.State = StateFailed
		now := time.Now()
		r.CompletedAt = &now
	}
}

// AddTrial appends t, numbering it within the run.
func (r *Run) AddTrial(t Trial) {
	t.RunID = r.ID
	t.Seq = len(r.Trials) + 1
	r.Trials = append(r.Trials, t)
}

// Duration returns the wall time between start and completion.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// IsCompleted checks if the run is in a terminal state.
func (r *Run) IsCompleted() bool {
	return r.State.IsTerminal()
}

// Trial is one timed query submission.
type Trial struct {
	RunID string `json:"run_id"`
	Seq   int    `json:"seq"`

	// Query names the query, e.g. Query1 (temporal) or Query2 (combo).
	Query string `json:"query"`

	// TemporalRange is the number of years covered.
	TemporalRange int `json:"temporal_range"`

	// SpatialRange is the grid fraction; nil for queries without a spatial filter.
	SpatialRange *float64 `json:"spatial_range,omitempty"`

	Iteration int       `json:"iteration"`
	ElapsedMs float64   `json:"elapsed_ms"`
	MemoryMB  float64   `json:"memory_mb"`
	Rows      int       `json:"rows"`
	SQL       string    `json:"sql,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SpatialLabel renders the spatial range the way the output file does: the
// fraction or NA.
func (t Trial) SpatialLabel() string {
	if t.SpatialRange == nil {
		return "NA"
	}
	return strconv.FormatFloat(*t.SpatialRange, 'f', -1, 64)
}

// Fraction is a convenience for building Trial.SpatialRange.
func Fraction(f float64) *float64 {
	return &f
}

// InvalidStateTransitionError represents an invalid state transition.
type InvalidStateTransitionError struct {
	From RunState
	To   RunState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
