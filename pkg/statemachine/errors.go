package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: nil event")
	ErrNilState          = errors.New("statemachine: nil initial state")
)

// TransitionError reports that Fire could not move the machine. Rejected is
// set when candidate transitions existed but every one failed a guard.
type TransitionError struct {
	State    string
	Event    string
	Rejected bool
}

func (e *TransitionError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("statemachine: guards rejected %q in state %q", e.Event, e.State)
	}
	return fmt.Sprintf("statemachine: no transition for %q in state %q", e.Event, e.State)
}

// IsNoTransitionAvailableError reports an event the current state does not handle.
func IsNoTransitionAvailableError(err error) bool {
	var e *TransitionError
	return errors.As(err, &e) && !e.Rejected
}

// IsTransitionRejectedError reports an event blocked by guards.
func IsTransitionRejectedError(err error) bool {
	var e *TransitionError
	return errors.As(err, &e) && e.Rejected
}
