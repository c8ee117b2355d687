package execution

import "testing"

// TestRunState_IsValid tests valid state detection.
func TestRunState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state RunState
		want  bool
	}{
		{"pending is valid", StatePending, true},
		{"loading is valid", StateLoading, true},
		{"running is valid", StateRunning, true},
		{"completed is valid", StateCompleted, true},
		{"failed is valid", StateFailed, true},
		{"cancelled is valid", StateCancelled, true},
		{"timeout is valid", StateTimeout, true},
		{"invalid state", RunState("warming_up"), false},
		{"empty state", RunState(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("RunState.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestRunState_IsTerminal tests terminal state detection.
func TestRunState_IsTerminal(t *testing.T) {
	tests := []struct {
		state RunState
		want  bool
	}{
		{StateCompleted, true},
		{StateFailed, true},
		{StateCancelled, true},
		{StateTimeout, true},
		{StatePending, false},
		{StateLoading, false},
		{StateRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("RunState.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestRunState_CanTransitionTo tests the transition table.
func TestRunState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RunState
		want     bool
	}{
		{StatePending, StateLoading, true},
		{StatePending, StateCancelled, true},
		{StatePending, StateRunning, false},
		{StateLoading, StateRunning, true},
		{StateLoading, StateFailed, true},
		{StateRunning, StateCompleted, true},
		{StateRunning, StateTimeout, true},
		{StateRunning, StatePending, false},
		{StateCompleted, StateRunning, false},
		{StateFailed, StateCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
