package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/queue"
)

type pingPayload struct {
	Value string `json:"value"`
}

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewEnqueuer(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})

	t.Run("keyed task", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		ms := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(ms)
		require.NoError(t, err)

		id := uuid.New()
		at := time.Now().Add(time.Hour).Truncate(time.Second)
		got, err := enq.Enqueue(ctx, pingPayload{Value: "a"},
			queue.WithTaskID(id),
			queue.WithGroup("event-1"),
			queue.WithScheduledAt(at),
		)
		require.NoError(t, err)
		assert.Equal(t, id, got)

		task, err := ms.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "event-1", task.Group)
		assert.Equal(t, "queue_test.pingPayload", task.TaskName)
		assert.True(t, task.ScheduledAt.Equal(at))

		var p pingPayload
		require.NoError(t, json.Unmarshal(task.Payload, &p))
		assert.Equal(t, "a", p.Value)

		_, err = enq.Enqueue(ctx, pingPayload{Value: "b"}, queue.WithTaskID(id))
		assert.ErrorIs(t, err, queue.ErrTaskAlreadyExists)
	})

	t.Run("nil payload", func(t *testing.T) {
		t.Parallel()
		enq, err := queue.NewEnqueuer(queue.NewMemoryStorage())
		require.NoError(t, err)
		_, err = enq.Enqueue(context.Background(), nil)
		assert.ErrorIs(t, err, queue.ErrPayloadNil)
	})

	t.Run("invalid priority", func(t *testing.T) {
		t.Parallel()
		enq, err := queue.NewEnqueuer(queue.NewMemoryStorage())
		require.NoError(t, err)
		_, err = enq.Enqueue(context.Background(), pingPayload{}, queue.WithPriority(101))
		assert.ErrorIs(t, err, queue.ErrInvalidPriority)
	})
}
