package tasks

import (
	"fmt"
	"time"
)

// successor maps each state to the next state on the success path.
var successor = map[State]State{
	StateQueued:     StateUploading,
	StateUploading:  StateUploaded,
	StateUploaded:   StateSubmitting,
	StateSubmitting: StateSubmitted,
	StateSubmitted:  StatePolling,
	StatePolling:    StateCompleted,
}

// CanTransition reports whether the edge from → to is legal. The success
// path admits only its immediate successor; Failed is reachable from any
// non-terminal state; terminal states admit nothing.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return successor[from] == to
}

// Change carries the fields a transition is allowed to set. Fields not
// relevant to the target state must be zero.
type Change struct {
	StorageKey      string
	StorageURL      string
	OperationHandle string
	Result          *Result
}

// Apply advances the task to the target state, stamping UpdatedAt and
// setting the fields the target state introduces. It returns
// ErrInvalidTransition for illegal edges or changes that violate the
// state/field invariant. Illegal transitions are a programming-contract
// violation: callers must treat them as fatal to the task, not retryable.
func (t *Task) Apply(to State, ch Change) error {
	if !CanTransition(t.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, to)
	}

	switch {
	case to == StateUploaded:
		if ch.StorageKey == "" || ch.StorageURL == "" {
			return fmt.Errorf("%w: transition to %s requires storage location", ErrInvalidTransition, to)
		}
		t.StorageKey = ch.StorageKey
		t.StorageURL = ch.StorageURL
	case to == StateSubmitted:
		if ch.OperationHandle == "" {
			return fmt.Errorf("%w: transition to %s requires operation handle", ErrInvalidTransition, to)
		}
		t.OperationHandle = ch.OperationHandle
	case to.Terminal():
		if ch.Result == nil {
			return fmt.Errorf("%w: transition to %s requires a result", ErrInvalidTransition, to)
		}
		if to == StateFailed && ch.Result.Error == nil {
			return fmt.Errorf("%w: failed result requires an error", ErrInvalidTransition)
		}
		t.Result = ch.Result
	}

	t.State = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}
