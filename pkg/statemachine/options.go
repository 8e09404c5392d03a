package statemachine

import "fmt"

// Option configures a machine during New.
type Option func(*Machine) error

// TransitionOption attaches guards or actions to one WithTransition.
type TransitionOption func(*TransitionDef)

// TransitionDef declares a transition in table form for WithTransitions.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// New creates a machine in initialState.
func New(initialState State, opts ...Option) (StateMachine, error) {
	if initialState == nil {
		return nil, ErrNilState
	}
	sm := newMachine(initialState)
	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, err
		}
	}
	return sm, nil
}

// MustNew is New for package-level machine tables. It panics on a bad definition.
func MustNew(initialState State, opts ...Option) StateMachine {
	sm, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return sm
}

func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	def := TransitionDef{From: from, To: to, Event: event}
	for _, opt := range opts {
		opt(&def)
	}
	return WithTransitions([]TransitionDef{def})
}

func WithTransitions(defs []TransitionDef) Option {
	return func(sm *Machine) error {
		for i, d := range defs {
			if err := sm.AddTransition(d.From, d.To, d.Event, d.Guards, d.Actions); err != nil {
				return fmt.Errorf("transition %d (%s -> %s on %s): %w", i, nameOf(d.From), nameOf(d.To), nameOf(d.Event), err)
			}
		}
		return nil
	}
}

// WithListener registers l to run after every completed transition.
func WithListener(l Listener) Option {
	return func(sm *Machine) error {
		if l != nil {
			sm.listeners = append(sm.listeners, l)
		}
		return nil
	}
}

// WithGuards requires every non-nil guard to pass.
func WithGuards(guards ...Guard) TransitionOption {
	return func(d *TransitionDef) {
		for _, g := range guards {
			if g != nil {
				d.Guards = append(d.Guards, g)
			}
		}
	}
}

// WithActions runs the non-nil actions in order before the state changes.
func WithActions(actions ...Action) TransitionOption {
	return func(d *TransitionDef) {
		for _, a := range actions {
			if a != nil {
				d.Actions = append(d.Actions, a)
			}
		}
	}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
