package lifecycle

import (
	"context"
	"sort"
	"sync"
)

// StateStore persists coordinator states so that coordinators survive restarts.
type StateStore interface {
	Save(ctx context.Context, s State) error
	// Load returns ErrStateNotFound for an unknown event.
	Load(ctx context.Context, eventID string) (State, error)
	Delete(ctx context.Context, eventID string) error
	// ListActive returns ids of events whose coordinator has not terminated.
	ListActive(ctx context.Context) ([]string, error)
}

// MemoryStateStore is a StateStore for tests and single-process setups.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

// Save implements StateStore.
func (m *MemoryStateStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.EventID] = s.Clone()
	return nil
}

// Load implements StateStore.
func (m *MemoryStateStore) Load(_ context.Context, eventID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[eventID]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return s.Clone(), nil
}

// Delete implements StateStore.
func (m *MemoryStateStore) Delete(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, eventID)
	return nil
}

// ListActive implements StateStore.
func (m *MemoryStateStore) ListActive(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.states))
	for id, s := range m.states {
		if s.Phase == PhaseStarting || s.Phase == PhaseActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
