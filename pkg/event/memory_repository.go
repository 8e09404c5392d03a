package event

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryRepository implements Repository in memory for tests and local development.
// It also exposes write helpers that the external management layer would own in production.
type MemoryRepository struct {
	mu             sync.RWMutex
	events         map[string]Event
	subscriptions  map[string]Subscription
	channels       map[string]Channel
	defaultOffsets []int64
}

// MemoryRepositoryOption configures a MemoryRepository.
type MemoryRepositoryOption func(*MemoryRepository)

// WithDefaultOffsets sets the offsets applied to subscriptions saved without any.
func WithDefaultOffsets(offsets ...int64) MemoryRepositoryOption {
	return func(r *MemoryRepository) {
		r.defaultOffsets = offsets
	}
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(opts ...MemoryRepositoryOption) *MemoryRepository {
	r := &MemoryRepository{
		events:        make(map[string]Event),
		subscriptions: make(map[string]Subscription),
		channels:      make(map[string]Channel),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveEvent inserts or replaces an event.
func (r *MemoryRepository) SaveEvent(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = e
	return nil
}

// DeleteEvent removes an event. Missing events are ignored.
func (r *MemoryRepository) DeleteEvent(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, eventID)
	return nil
}

// SaveSubscription inserts or replaces a subscription, normalizing its offsets.
func (r *MemoryRepository) SaveSubscription(_ context.Context, s Subscription) error {
	for _, sel := range s.Selectors {
		if !sel.Valid() {
			return fmt.Errorf("%w: %q/%q", ErrInvalidSelector, sel.Kind, sel.Value)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s.Offsets = NormalizeOffsets(s.Offsets, r.defaultOffsets)
	s.Selectors = slices.Clone(s.Selectors)
	r.subscriptions[s.ID] = s
	return nil
}

// DeleteSubscription removes a subscription. Missing subscriptions are ignored.
func (r *MemoryRepository) DeleteSubscription(_ context.Context, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscriptions, subscriptionID)
	return nil
}

// SaveChannel inserts or replaces a delivery channel.
func (r *MemoryRepository) SaveChannel(_ context.Context, c Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Targets = slices.Clone(c.Targets)
	c.Tags = slices.Clone(c.Tags)
	r.channels[c.ID] = c
	return nil
}

func (r *MemoryRepository) EventExists(_ context.Context, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.events[eventID]
	return ok, nil
}

func (r *MemoryRepository) GetEvent(_ context.Context, eventID string) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[eventID]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepository) ListActiveSubscriptions(_ context.Context, eventID string) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscription, 0)
	for _, s := range r.subscriptions {
		if s.EventID == eventID && s.Active {
			subs = append(subs, s)
		}
	}

	// Map iteration is random; keep results stable for callers and tests.
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (r *MemoryRepository) GetSubscription(_ context.Context, subscriptionID string) (Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subscriptions[subscriptionID]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) ResolveChannels(_ context.Context, ownerID string, selector Selector) ([]Channel, error) {
	if !selector.Valid() {
		return nil, ErrInvalidSelector
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch selector.Kind {
	case SelectorChannel:
		c, ok := r.channels[selector.Value]
		if !ok || !c.Active || c.OwnerID != ownerID {
			return nil, nil
		}
		return []Channel{c}, nil
	default:
		var out []Channel
		for _, c := range r.channels {
			if c.OwnerID == ownerID && c.Active && c.HasTag(selector.Value) {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	}
}
