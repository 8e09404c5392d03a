package statemachine

import (
	"context"
)

// State is a node of the machine.
type State interface {
	Name() string
}

// Event triggers a transition.
type Event interface {
	Name() string
}

// Action runs during a transition. Returning an error keeps the machine in the source state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may be taken.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Listener is notified after every completed transition.
type Listener func(ctx context.Context, from, to State, event Event)

// Transition is a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass
	Actions []Action // Run in order before the state changes
}

// StateMachine is a finite state machine.
type StateMachine interface {
	Current() State
	AddTransition(from, to State, event Event, guards []Guard, actions []Action) error
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
	// Is reports whether the current state has the same name as s.
	Is(s State) bool
	Reset() error
}

// StringState is a State named by its value.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent is an Event named by its value.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}
