package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Lease guarantees a single live coordinator per event across processes.
type Lease interface {
	// Acquire takes the lease for owner. It reports false when another owner holds it.
	Acquire(ctx context.Context, eventID, owner string, ttl time.Duration) (bool, error)
	// Renew extends a lease held by owner. It reports false when the lease was lost.
	Renew(ctx context.Context, eventID, owner string, ttl time.Duration) (bool, error)
	// Release drops the lease if owner still holds it.
	Release(ctx context.Context, eventID, owner string) error
}

type memoryLeaseEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryLease is a Lease for a single process.
type MemoryLease struct {
	mu     sync.Mutex
	leases map[string]memoryLeaseEntry
	now    func() time.Time
}

// NewMemoryLease creates an empty lease table.
func NewMemoryLease() *MemoryLease {
	return &MemoryLease{leases: make(map[string]memoryLeaseEntry), now: time.Now}
}

// Acquire implements Lease.
func (m *MemoryLease) Acquire(_ context.Context, eventID, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[eventID]; ok && l.owner != owner && now.Before(l.expiresAt) {
		return false, nil
	}
	m.leases[eventID] = memoryLeaseEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Renew implements Lease.
func (m *MemoryLease) Renew(_ context.Context, eventID, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leases[eventID]
	if !ok || l.owner != owner {
		return false, nil
	}
	l.expiresAt = m.now().Add(ttl)
	m.leases[eventID] = l
	return true, nil
}

// Release implements Lease.
func (m *MemoryLease) Release(_ context.Context, eventID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.leases[eventID]; ok && l.owner == owner {
		delete(m.leases, eventID)
	}
	return nil
}
