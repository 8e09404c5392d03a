package reminder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/reminder"
	"github.com/dmitrymomot/eventkit/pkg/schedule"
)

type dispatchCall struct {
	EventID         string
	Message         notifications.Message
	SubscriptionIDs []string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (f *fakeDispatcher) Dispatch(_ context.Context, eventID string, msg notifications.Message, ids ...string) (notifications.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{EventID: eventID, Message: msg, SubscriptionIDs: ids})
	return notifications.Report{EventID: eventID, Delivered: len(ids), Total: len(ids)}, nil
}

func (f *fakeDispatcher) Calls() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchCall(nil), f.calls...)
}

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

func TestHumanizeOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "now"},
		{-5, "now"},
		{30, "30 seconds"},
		{60, "1 minute"},
		{900, "15 minutes"},
		{5400, "90 minutes"},
		{3600, "1 hour"},
		{7200, "2 hours"},
		{86400, "1 day"},
		{172800, "2 days"},
		{90, "90 seconds"},
		{3630, "3630 seconds"},
		{1, "1 second"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reminder.HumanizeOffset(tt.seconds), "offset %d", tt.seconds)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	e := event.Event{
		ID:       "e1",
		Name:     "Launch",
		StartsAt: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		Location: "Room 4",
	}

	msg := reminder.Format(e, 3600, nil)
	assert.Equal(t, "e1", msg.EventID)
	assert.Equal(t, "Reminder: Launch", msg.Title)
	assert.Equal(t, notifications.LevelInfo, msg.Level)
	assert.Equal(t, "Launch starts in 1 hour (Mon, 02 Mar 2026 15:00 UTC). Location: Room 4.", msg.Body)

	soon := reminder.Format(e, 900, time.UTC)
	assert.Equal(t, notifications.LevelWarning, soon.Level)
	assert.Contains(t, soon.Body, "starts in 15 minutes")

	assert.Contains(t, reminder.Format(e, 0, nil).Body, "Launch is starting now")
}

func TestHandler_Handle(t *testing.T) {
	t.Parallel()

	startsAt := time.Now().Add(2 * time.Hour)
	cancelledAt := time.Now()

	tests := []struct {
		name      string
		events    []event.Event
		subs      []event.Subscription
		fire      schedule.Fire
		wantCalls int
	}{
		{
			name:      "event gone",
			fire:      schedule.Fire{EventID: "missing", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 0,
		},
		{
			name:      "event cancelled",
			events:    []event.Event{{ID: "e1", Name: "Launch", StartsAt: startsAt, CancelledAt: &cancelledAt}},
			subs:      []event.Subscription{{ID: "s1", EventID: "e1", Active: true, Offsets: []int64{3600}}},
			fire:      schedule.Fire{EventID: "e1", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 0,
		},
		{
			name:      "subscription gone",
			events:    []event.Event{{ID: "e1", Name: "Launch", StartsAt: startsAt}},
			fire:      schedule.Fire{EventID: "e1", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 0,
		},
		{
			name:      "subscription inactive",
			events:    []event.Event{{ID: "e1", Name: "Launch", StartsAt: startsAt}},
			subs:      []event.Subscription{{ID: "s1", EventID: "e1", Active: false, Offsets: []int64{3600}}},
			fire:      schedule.Fire{EventID: "e1", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 0,
		},
		{
			name:      "offset no longer requested",
			events:    []event.Event{{ID: "e1", Name: "Launch", StartsAt: startsAt}},
			subs:      []event.Subscription{{ID: "s1", EventID: "e1", Active: true, Offsets: []int64{900}}},
			fire:      schedule.Fire{EventID: "e1", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 0,
		},
		{
			name:      "sends one reminder",
			events:    []event.Event{{ID: "e1", Name: "Launch", StartsAt: startsAt}},
			subs:      []event.Subscription{{ID: "s1", EventID: "e1", Active: true, Offsets: []int64{3600, 900}}},
			fire:      schedule.Fire{EventID: "e1", SubscriptionID: "s1", OffsetSeconds: 3600},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			repo := event.NewMemoryRepository()
			for _, e := range tt.events {
				require.NoError(t, repo.SaveEvent(ctx, e))
			}
			for _, s := range tt.subs {
				require.NoError(t, repo.SaveSubscription(ctx, s))
			}

			d := &fakeDispatcher{}
			h := reminder.NewHandler(repo, d)

			require.NoError(t, h.Handle(ctx, tt.fire))

			calls := d.Calls()
			require.Len(t, calls, tt.wantCalls)
			if tt.wantCalls == 1 {
				assert.Equal(t, "e1", calls[0].EventID)
				assert.Equal(t, []string{"s1"}, calls[0].SubscriptionIDs)
				assert.Contains(t, calls[0].Message.Body, "starts in 1 hour")
			}
		})
	}
}

func TestHandler_FiredFromQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clk := &clock{now: now}
	startsAt := now.Add(2 * time.Hour)

	repo := event.NewMemoryRepository()
	require.NoError(t, repo.SaveEvent(ctx, event.Event{ID: "e1", Name: "Launch", StartsAt: startsAt}))
	sub := event.Subscription{ID: "s1", EventID: "e1", OwnerID: "u1", Active: true, Offsets: []int64{3600, 900}}
	require.NoError(t, repo.SaveSubscription(ctx, sub))

	store := queue.NewMemoryStorage(queue.WithClock(clk.Now))
	reg, err := schedule.NewRegistry(store, schedule.WithClock(clk.Now))
	require.NoError(t, err)
	require.NoError(t, reg.CreateAll(ctx, "e1", startsAt, []event.Subscription{sub}))

	live, err := reg.Live(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, live, 2)

	d := &fakeDispatcher{}
	h := reminder.NewHandler(repo, d)
	w, err := queue.NewWorker(store, queue.WithQueues("reminders"))
	require.NoError(t, err)
	w.RegisterHandlers(h.TaskHandler())

	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Set(startsAt.Add(-time.Hour).Add(time.Second))
	n, err = w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"s1"}, calls[0].SubscriptionIDs)

	live, err = reg.Live(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []schedule.Key{{EventID: "e1", SubscriptionID: "s1", Offset: 900}}, live)
}
