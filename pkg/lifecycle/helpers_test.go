package lifecycle_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/lifecycle"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/retry"
	"github.com/dmitrymomot/eventkit/pkg/schedule"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sent struct {
	ChannelID string
	Title     string
}

// recorder is a delivery backend remembering every message.
type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Send(_ context.Context, ch event.Channel, msg notifications.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{ChannelID: ch.ID, Title: msg.Title})
	return nil
}

func (r *recorder) titled(prefix string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if strings.HasPrefix(s.Title, prefix) {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	clk       *clock
	repo      *event.MemoryRepository
	tasks     *queue.MemoryStorage
	schedules *schedule.Registry
	backend   *recorder
	states    *lifecycle.MemoryStateStore
	inbox     *lifecycle.MemoryInbox
	lease     *lifecycle.MemoryLease
	reg       *lifecycle.Registry
}

func newFixture(t *testing.T, opts ...lifecycle.Option) *fixture {
	t.Helper()

	f := &fixture{
		clk:     &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		repo:    event.NewMemoryRepository(),
		backend: &recorder{},
		states:  lifecycle.NewMemoryStateStore(),
		inbox:   lifecycle.NewMemoryInbox(),
		lease:   lifecycle.NewMemoryLease(),
	}
	f.tasks = queue.NewMemoryStorage(queue.WithClock(f.clk.Now))

	var err error
	f.schedules, err = schedule.NewRegistry(f.tasks, schedule.WithClock(f.clk.Now))
	require.NoError(t, err)

	f.reg = f.newRegistry(t, opts...)
	return f
}

// newRegistry builds a registry sharing the fixture stores, like a second process would.
func (f *fixture) newRegistry(t *testing.T, opts ...lifecycle.Option) *lifecycle.Registry {
	t.Helper()
	return f.newRegistryFor(t, f.repo, opts...)
}

// newRegistryFor is newRegistry reading events through repo.
func (f *fixture) newRegistryFor(t *testing.T, repo event.Repository, opts ...lifecycle.Option) *lifecycle.Registry {
	t.Helper()

	dispatcher := notifications.NewDispatcher(f.repo, f.backend,
		notifications.WithRetryPolicy(retry.Policy{MaxAttempts: 1}),
		notifications.WithClock(f.clk.Now),
	)
	base := []lifecycle.Option{
		lifecycle.WithClock(f.clk.Now),
		lifecycle.WithStateStore(f.states),
		lifecycle.WithInbox(f.inbox),
		lifecycle.WithLease(f.lease),
	}
	reg, err := lifecycle.NewRegistry(repo, f.schedules, dispatcher, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	return reg
}

func (f *fixture) saveEvent(t *testing.T, e event.Event) {
	t.Helper()
	require.NoError(t, f.repo.SaveEvent(context.Background(), e))
}

// subscribe saves an active subscription with one in-app channel for owner.
func (f *fixture) subscribe(t *testing.T, eventID, subID, owner string, offsets ...int64) event.Subscription {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.repo.SaveChannel(ctx, event.Channel{
		ID: "ch-" + owner, OwnerID: owner, Kind: event.ChannelInApp, Targets: []string{owner}, Active: true,
	}))
	sub := event.Subscription{
		ID:        subID,
		EventID:   eventID,
		OwnerID:   owner,
		Selectors: []event.Selector{event.ChannelSelector("ch-" + owner)},
		Offsets:   offsets,
		Active:    true,
	}
	require.NoError(t, f.repo.SaveSubscription(ctx, sub))
	return sub
}

func (f *fixture) live(t *testing.T, eventID string) []schedule.Key {
	t.Helper()
	keys, err := f.schedules.Live(context.Background(), eventID)
	require.NoError(t, err)
	return keys
}

// waitProcessed waits until the coordinator has processed n signals since its last compaction.
func (f *fixture) waitProcessed(t *testing.T, eventID string, n int) lifecycle.State {
	t.Helper()
	var st lifecycle.State
	require.Eventually(t, func() bool {
		s, err := f.reg.Snapshot(eventID)
		if err != nil {
			return false
		}
		st = s
		return len(s.History) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func waitDone(t *testing.T, reg *lifecycle.Registry, eventID string) {
	t.Helper()
	done, err := reg.Done(eventID)
	if err != nil {
		return
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator for %s did not stop", eventID)
	}
	assert.Eventually(t, func() bool {
		return !contains(reg.Running(), eventID)
	}, time.Second, 5*time.Millisecond)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func keys(eventID, subID string, offsets ...int64) []schedule.Key {
	out := make([]schedule.Key, len(offsets))
	for i, o := range offsets {
		out[i] = schedule.Key{EventID: eventID, SubscriptionID: subID, Offset: o}
	}
	return out
}
