package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/queue"
)

func newTask(id uuid.UUID, group string, at time.Time) *queue.Task {
	return &queue.Task{
		ID:          id,
		Queue:       queue.DefaultQueueName,
		Group:       group,
		TaskType:    queue.TaskTypeOneTime,
		TaskName:    "test.task",
		Status:      queue.TaskStatusPending,
		Priority:    queue.PriorityDefault,
		MaxRetries:  2,
		ScheduledAt: at,
		CreatedAt:   at,
	}
}

func TestMemoryStorage_CreateTask(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate live task", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		ms := queue.NewMemoryStorage()
		id := uuid.New()

		require.NoError(t, ms.CreateTask(ctx, newTask(id, "g", time.Now())))
		err := ms.CreateTask(ctx, newTask(id, "g", time.Now()))
		assert.ErrorIs(t, err, queue.ErrTaskAlreadyExists)
	})

	t.Run("replaces completed task", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		ms := queue.NewMemoryStorage()
		id := uuid.New()
		past := time.Now().Add(-time.Minute)

		require.NoError(t, ms.CreateTask(ctx, newTask(id, "g", past)))
		claimed, err := ms.ClaimTask(ctx, uuid.New(), []string{queue.DefaultQueueName}, time.Minute)
		require.NoError(t, err)
		require.NoError(t, ms.CompleteTask(ctx, claimed.ID))

		future := time.Now().Add(time.Hour)
		require.NoError(t, ms.CreateTask(ctx, newTask(id, "g", future)))

		got, err := ms.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusPending, got.Status)
		assert.True(t, got.ScheduledAt.Equal(future))
	})

	t.Run("nil task", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, queue.NewMemoryStorage().CreateTask(context.Background(), nil))
	})
}

func TestMemoryStorage_DeleteAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms := queue.NewMemoryStorage()
	now := time.Now()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, ms.CreateTask(ctx, newTask(a, "e1", now.Add(2*time.Hour))))
	require.NoError(t, ms.CreateTask(ctx, newTask(b, "e1", now.Add(time.Hour))))
	require.NoError(t, ms.CreateTask(ctx, newTask(c, "e2", now.Add(time.Hour))))

	tasks, err := ms.ListTasksByGroup(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, b, tasks[0].ID)
	assert.Equal(t, a, tasks[1].ID)

	require.NoError(t, ms.DeleteTask(ctx, a))
	assert.ErrorIs(t, ms.DeleteTask(ctx, a), queue.ErrTaskNotFound)

	tasks, err = ms.ListTasksByGroup(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	tasks, err = ms.ListTasksByGroup(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMemoryStorage_ClaimTask(t *testing.T) {
	t.Parallel()

	t.Run("skips future and foreign queues", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		ms := queue.NewMemoryStorage()

		require.NoError(t, ms.CreateTask(ctx, newTask(uuid.New(), "", time.Now().Add(time.Hour))))
		other := newTask(uuid.New(), "", time.Now().Add(-time.Minute))
		other.Queue = "other"
		require.NoError(t, ms.CreateTask(ctx, other))

		_, err := ms.ClaimTask(ctx, uuid.New(), []string{queue.DefaultQueueName}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("prefers priority then schedule", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		ms := queue.NewMemoryStorage()
		now := time.Now()

		low := newTask(uuid.New(), "", now.Add(-2*time.Minute))
		low.Priority = queue.PriorityLow
		early := newTask(uuid.New(), "", now.Add(-2*time.Minute))
		late := newTask(uuid.New(), "", now.Add(-time.Minute))
		for _, task := range []*queue.Task{low, late, early} {
			require.NoError(t, ms.CreateTask(ctx, task))
		}

		queues := []string{queue.DefaultQueueName}
		first, err := ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		require.NoError(t, err)
		second, err := ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		require.NoError(t, err)
		third, err := ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		require.NoError(t, err)

		assert.Equal(t, early.ID, first.ID)
		assert.Equal(t, late.ID, second.ID)
		assert.Equal(t, low.ID, third.ID)
		assert.Equal(t, queue.TaskStatusProcessing, first.Status)
	})

	t.Run("releases expired locks", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		now := time.Now()
		clock := now
		ms := queue.NewMemoryStorage(queue.WithClock(func() time.Time { return clock }))

		require.NoError(t, ms.CreateTask(ctx, newTask(uuid.New(), "", now.Add(-time.Second))))
		queues := []string{queue.DefaultQueueName}
		_, err := ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		require.NoError(t, err)

		_, err = ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)

		clock = now.Add(2 * time.Minute)
		_, err = ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
		assert.NoError(t, err)
	})
}

func TestMemoryStorage_FailTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms := queue.NewMemoryStorage()
	queues := []string{queue.DefaultQueueName}

	task := newTask(uuid.New(), "", time.Now().Add(-time.Second))
	task.MaxRetries = 1
	require.NoError(t, ms.CreateTask(ctx, task))

	assert.ErrorIs(t, ms.FailTask(ctx, task.ID, "boom"), queue.ErrTaskNotProcessing)

	_, err := ms.ClaimTask(ctx, uuid.New(), queues, time.Minute)
	require.NoError(t, err)
	require.NoError(t, ms.FailTask(ctx, task.ID, "boom"))

	got, err := ms.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "boom", *got.Error)

	require.NoError(t, ms.MoveToDLQ(ctx, task.ID))
	_, err = ms.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)

	dlq := ms.DeadLetters()
	require.Len(t, dlq, 1)
	assert.Equal(t, task.ID, dlq[0].TaskID)
	assert.Equal(t, "boom", dlq[0].Error)
}

func TestMemoryStorage_GetPendingTaskByName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ms := queue.NewMemoryStorage()

	_, err := ms.GetPendingTaskByName(ctx, "test.task")
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)

	task := newTask(uuid.New(), "", time.Now().Add(time.Hour))
	require.NoError(t, ms.CreateTask(ctx, task))

	got, err := ms.GetPendingTaskByName(ctx, "test.task")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}
