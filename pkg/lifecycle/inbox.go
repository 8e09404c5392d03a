package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Inbox is the ordered, persisted queue of signals for each event.
// Entry ids grow monotonically per event.
type Inbox interface {
	Append(ctx context.Context, eventID string, s Signal) (string, error)
	// Read returns entries after the given id in arrival order; an empty id reads from the start.
	Read(ctx context.Context, eventID, after string) ([]Envelope, error)
	// Trim drops entries older than upTo. The upTo entry itself may stay;
	// Read after upTo never returns it.
	Trim(ctx context.Context, eventID, upTo string) error
	Delete(ctx context.Context, eventID string) error
}

// MemoryInbox is an Inbox kept in process memory.
type MemoryInbox struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string][]Envelope
	now     func() time.Time
}

// NewMemoryInbox creates an empty inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{entries: make(map[string][]Envelope), now: time.Now}
}

// Append implements Inbox.
func (m *MemoryInbox) Append(_ context.Context, eventID string, s Signal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	// Zero padding keeps string order equal to numeric order.
	id := fmt.Sprintf("%020d", m.seq)
	m.entries[eventID] = append(m.entries[eventID], Envelope{ID: id, Signal: s, ReceivedAt: m.now()})
	return id, nil
}

// Read implements Inbox.
func (m *MemoryInbox) Read(_ context.Context, eventID, after string) ([]Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Envelope
	for _, e := range m.entries[eventID] {
		if e.ID > after {
			out = append(out, e)
		}
	}
	return out, nil
}

// Trim implements Inbox.
func (m *MemoryInbox) Trim(_ context.Context, eventID, upTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[eventID][:0]
	for _, e := range m.entries[eventID] {
		if e.ID >= upTo {
			kept = append(kept, e)
		}
	}
	m.entries[eventID] = kept
	return nil
}

// Delete implements Inbox.
func (m *MemoryInbox) Delete(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, eventID)
	return nil
}

// Len returns the number of stored entries for the event.
func (m *MemoryInbox) Len(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[eventID])
}
