package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is the in-memory StateMachine. Transitions are looked up by
// [from][event]; several transitions for the same pair are tried in the
// order they were added and the first one whose guards pass wins.
type Machine struct {
	mu           sync.RWMutex
	initialState State
	currentState State
	transitions  map[string]map[string][]Transition
	listeners    []Listener
}

func newMachine(initialState State) *Machine {
	return &Machine{
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[string]map[string][]Transition),
	}
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

func (m *Machine) Is(s State) bool {
	if s == nil {
		return false
	}
	return m.Current().Name() == s.Name()
}

func (m *Machine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[from.Name()] = byEvent
	}
	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// Fire takes the first permitted transition for event. Listeners run after
// the state changed, outside the lock.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.currentState
	t, err := m.find(ctx, event, data)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, t.To, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}
	m.currentState = t.To
	listeners := m.listeners
	m.mu.Unlock()

	for _, l := range listeners {
		l(ctx, from, t.To, event)
	}
	return nil
}

func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.find(ctx, event, data)
	return err == nil
}

func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = m.initialState
	return nil
}

// find must be called with the lock held.
func (m *Machine) find(ctx context.Context, event Event, data any) (*Transition, error) {
	state, name := m.currentState.Name(), event.Name()

	candidates := m.transitions[state][name]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: state, Event: name}
	}

	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, m.currentState, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{State: state, Event: name, Rejected: true}
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
