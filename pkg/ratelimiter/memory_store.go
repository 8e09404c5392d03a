package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
	expiresAt  time.Time
}

// MemoryStore keeps buckets in process memory. A janitor goroutine drops
// buckets that have refilled completely.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState

	janitorInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are dropped. Zero disables
// the janitor.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.janitorInterval = interval
	}
}

// NewMemoryStore creates a store. Call Close to stop its janitor.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucketState),
		janitorInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.janitorInterval > 0 {
		go ms.janitor()
	}
	return ms
}

func (ms *MemoryStore) Take(_ context.Context, key string, tokens int, cfg Config, now time.Time) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	b, ok := ms.buckets[key]
	if !ok {
		b = &bucketState{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed >= cfg.RefillInterval {
		intervals := int64(elapsed / cfg.RefillInterval)
		// Anything past a full refill is irrelevant; the cap avoids overflow.
		full := int64(cfg.Capacity/cfg.RefillRate + 1)
		b.tokens = min(b.tokens+int(min(intervals, full))*cfg.RefillRate, cfg.Capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
	}

	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}
	b.expiresAt = now.Add(cfg.ttl())
	return remaining, b.lastRefill.Add(cfg.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.buckets, key)
	return nil
}

// Len returns the number of tracked buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

// Close stops the janitor. It is safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}

func (ms *MemoryStore) janitor() {
	ticker := time.NewTicker(ms.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			ms.sweep(now)
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) sweep(now time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for key, b := range ms.buckets {
		if now.After(b.expiresAt) {
			delete(ms.buckets, key)
		}
	}
}
