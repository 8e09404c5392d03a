package queue

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// retryBackoff is the delay added per failed attempt before a task becomes claimable again.
const retryBackoff = 30 * time.Second

// MemoryStorage implements all queue repository interfaces in process memory.
// Expired locks are released lazily on the next claim.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	dlq   []TasksDlq
	now   func() time.Time
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithClock overrides the clock used to decide which tasks are due.
func WithClock(now func() time.Time) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// CreateTask stores a copy of task. A pending or processing task with the
// same ID yields ErrTaskAlreadyExists; a finished one is replaced.
func (ms *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if existing, ok := ms.tasks[task.ID]; ok && existing.Status.Live() {
		return ErrTaskAlreadyExists
	}

	c := *task
	ms.tasks[task.ID] = &c
	return nil
}

// GetTask returns a copy of the task with the given ID.
func (ms *MemoryStorage) GetTask(_ context.Context, id uuid.UUID) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	t, ok := ms.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	c := *t
	return &c, nil
}

// DeleteTask removes a task regardless of its status.
func (ms *MemoryStorage) DeleteTask(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(ms.tasks, id)
	return nil
}

// ListTasksByGroup returns every stored task tagged with group, ordered by
// scheduled time and then ID.
func (ms *MemoryStorage) ListTasksByGroup(_ context.Context, group string) ([]Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Task
	for _, t := range ms.tasks {
		if t.Group == group {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b Task) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// GetPendingTaskByName implements SchedulerRepository
func (ms *MemoryStorage) GetPendingTaskByName(_ context.Context, name string) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, t := range ms.tasks {
		if t.TaskName == name && t.Status == TaskStatusPending {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrTaskNotFound
}

// ClaimTask picks the highest priority due task, oldest schedule first.
func (ms *MemoryStorage) ClaimTask(_ context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	ms.releaseExpiredLocks(now)

	var best *Task
	for _, t := range ms.tasks {
		if t.Status != TaskStatusPending || t.ScheduledAt.After(now) || !slices.Contains(queues, t.Queue) {
			continue
		}
		if best == nil ||
			t.Priority > best.Priority ||
			(t.Priority == best.Priority && t.ScheduledAt.Before(best.ScheduledAt)) {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	until := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &until
	best.LockedBy = &workerID

	c := *best
	return &c, nil
}

func (ms *MemoryStorage) releaseExpiredLocks(now time.Time) {
	for _, t := range ms.tasks {
		if t.Status == TaskStatusProcessing && t.LockedUntil != nil && t.LockedUntil.Before(now) {
			t.Status = TaskStatusPending
			t.LockedUntil = nil
			t.LockedBy = nil
		}
	}
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, err := ms.processing(id)
	if err != nil {
		return err
	}

	now := ms.now()
	t.Status = TaskStatusCompleted
	t.ProcessedAt = &now
	t.LockedUntil = nil
	t.LockedBy = nil
	return nil
}

// FailTask implements WorkerRepository
func (ms *MemoryStorage) FailTask(_ context.Context, id uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, err := ms.processing(id)
	if err != nil {
		return err
	}

	t.RetryCount++
	t.Error = &errorMsg
	t.LockedUntil = nil
	t.LockedBy = nil

	if t.RetryCount >= t.MaxRetries {
		t.Status = TaskStatusFailed
		return nil
	}
	t.Status = TaskStatusPending
	t.ScheduledAt = ms.now().Add(time.Duration(t.RetryCount) * retryBackoff)
	return nil
}

// MoveToDLQ implements WorkerRepository
func (ms *MemoryStorage) MoveToDLQ(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, ok := ms.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}

	now := ms.now()
	entry := TasksDlq{
		ID:         uuid.New(),
		TaskID:     t.ID,
		Queue:      t.Queue,
		Group:      t.Group,
		TaskType:   t.TaskType,
		TaskName:   t.TaskName,
		Payload:    t.Payload,
		Priority:   t.Priority,
		RetryCount: t.RetryCount,
		FailedAt:   now,
		CreatedAt:  t.CreatedAt,
	}
	if t.Error != nil {
		entry.Error = *t.Error
	}
	ms.dlq = append(ms.dlq, entry)
	delete(ms.tasks, id)
	return nil
}

// DeadLetters returns a copy of the dead letter queue.
func (ms *MemoryStorage) DeadLetters() []TasksDlq {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return slices.Clone(ms.dlq)
}

func (ms *MemoryStorage) processing(id uuid.UUID) (*Task, error) {
	t, ok := ms.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Status != TaskStatusProcessing {
		return nil, ErrTaskNotProcessing
	}
	return t, nil
}
