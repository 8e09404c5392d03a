package lifecycle_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/lifecycle"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

func TestRegistry_StartTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.saveEvent(t, event.Event{ID: "e1", Name: "Launch", StartsAt: f.clk.Now().Add(2 * time.Hour)})
	f.subscribe(t, "e1", "s1", "u1", 3600)

	ms := queue.NewMemoryStorage()
	enq, err := queue.NewEnqueuer(ms)
	require.NoError(t, err)
	w, err := queue.NewWorker(ms)
	require.NoError(t, err)
	w.RegisterHandlers(f.reg.StartTask(), f.reg.SignalTask())

	_, err = enq.Enqueue(ctx, lifecycle.StartRequest{EventID: "e1"})
	require.NoError(t, err)
	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"e1"}, f.reg.Running())
	assert.Equal(t, keys("e1", "s1", 3600), f.live(t, "e1"))

	_, err = enq.Enqueue(ctx, lifecycle.SignalRequest{
		EventID: "e1",
		Signal:  lifecycle.ManualNotification("Doors open", "Come in", notifications.LevelInfo),
	})
	require.NoError(t, err)
	_, err = w.Drain(ctx)
	require.NoError(t, err)
	f.waitProcessed(t, "e1", 1)
	assert.Len(t, f.backend.titled("Doors open"), 1)
}

func TestRegistry_TaskErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.saveEvent(t, event.Event{ID: "e1", Name: "Launch", StartsAt: f.clk.Now().Add(2 * time.Hour)})

	start := f.reg.StartTask()
	signal := f.reg.SignalTask()
	assert.Equal(t, "lifecycle.StartRequest", start.Name())
	assert.Equal(t, "lifecycle.SignalRequest", signal.Name())

	payload := func(v any) json.RawMessage {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name      string
		handler   queue.Handler
		payload   any
		permanent bool
		target    error
	}{
		{"start", start, lifecycle.StartRequest{EventID: "e1"}, false, nil},
		{"start twice", start, lifecycle.StartRequest{EventID: "e1"}, false, nil},
		{"start missing event", start, lifecycle.StartRequest{EventID: "ghost"}, true, event.ErrNotFound},
		{"invalid signal", signal, lifecycle.SignalRequest{EventID: "e1", Signal: lifecycle.ParticipantRemoved("")}, true, lifecycle.ErrInvalidSignal},
		{"unknown event", signal, lifecycle.SignalRequest{EventID: "ghost", Signal: lifecycle.CancelEvent()}, true, lifecycle.ErrNotActive},
	}
	for _, tt := range tests {
		err := tt.handler.Handle(ctx, payload(tt.payload))
		if tt.target == nil {
			assert.NoError(t, err, tt.name)
			continue
		}
		assert.ErrorIs(t, err, tt.target, tt.name)
		assert.Equal(t, tt.permanent, retry.IsPermanent(err), tt.name)
	}
}

func TestRegistry_SubmitRecoversIdleEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.saveEvent(t, event.Event{ID: "e1", Name: "Launch", StartsAt: f.clk.Now().Add(2 * time.Hour)})
	f.subscribe(t, "e1", "s1", "u1", 3600)
	require.NoError(t, f.reg.Start(ctx, "e1"))
	require.NoError(t, f.reg.Shutdown(ctx))

	next := f.newRegistry(t)
	require.NoError(t, next.Submit(ctx, "e1", lifecycle.ManualNotification("Doors open", "Come in", notifications.LevelInfo)))
	assert.Equal(t, []string{"e1"}, next.Running())
	assert.Eventually(t, func() bool {
		return len(f.backend.titled("Doors open")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, f.backend.titled("New event:"), 1)
}

func TestRegistry_SubmitForwardsToOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.saveEvent(t, event.Event{ID: "e1", Name: "Launch", StartsAt: f.clk.Now().Add(2 * time.Hour)})
	f.subscribe(t, "e1", "s1", "u1", 3600)

	cfg := lifecycle.DefaultConfig()
	cfg.LeaseTTL = 3 * time.Second
	owner := f.newRegistry(t, lifecycle.WithConfig(cfg))
	require.NoError(t, owner.Start(ctx, "e1"))

	other := f.newRegistry(t)
	require.NoError(t, other.Submit(ctx, "e1", lifecycle.ManualNotification("Remote", "Hello", notifications.LevelInfo)))
	assert.Empty(t, other.Running())

	// The owner picks the signal up from the shared inbox on its next lease renewal.
	assert.Eventually(t, func() bool {
		return len(f.backend.titled("Remote")) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"e1"}, owner.Running())
}
