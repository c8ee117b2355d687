// Package execution provides benchmark run domain models.
package execution

// RunState represents the state of a benchmark run.
type RunState string

const (
	StatePending   RunState = "pending"   // Created, waiting to execute
	StateLoading   RunState = "loading"   // Opening the engine and loading tables
	StateRunning   RunState = "running"   // Submitting queries
	StateCompleted RunState = "completed" // Completed successfully
	StateFailed    RunState = "failed"    // Failed
	StateCancelled RunState = "cancelled" // Cancelled by user
	StateTimeout   RunState = "timeout"   // Query timeout exceeded
)

// IsValid checks if the state is valid.
func (s RunState) IsValid() bool {
	switch s {
	case StatePending, StateLoading, StateRunning,
		StateCompleted, StateFailed, StateCancelled, StateTimeout:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the state is a terminal state (no further transitions possible).
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled || s == StateTimeout
}

var transitions = map[RunState][]RunState{
	StatePending: {StateLoading, StateCancelled},
	StateLoading: {StateRunning, StateFailed, StateCancelled, StateTimeout},
	StateRunning: {StateCompleted, StateFailed, StateCancelled, StateTimeout},
}

// CanTransitionTo checks if a transition from current state to target state is valid.
func (s RunState) CanTransitionTo(target RunState) bool {
	for _, state := range transitions[s] {
		if state == target {
			return true
		}
	}
	return false
}

// String implements Stringer interface.
func (s RunState) String() string {
	return string(s)
}
