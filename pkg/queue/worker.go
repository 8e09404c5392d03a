package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask locks the next due task in one of queues, or returns ErrNoTaskToClaim.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error and either reschedules the task or marks it failed.
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	MoveToDLQ(ctx context.Context, taskID uuid.UUID) error
}

// Worker claims due tasks and dispatches them to registered handlers.
type Worker struct {
	repo     WorkerRepository
	workerID uuid.UUID
	queues   []string
	sem      chan struct{}

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       5 * time.Second,
		lockTimeout:        5 * time.Minute,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	id := uuid.New()
	return &Worker{
		repo:         repo,
		workerID:     id,
		queues:       options.queues,
		sem:          make(chan struct{}, options.maxConcurrentTasks),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger.With(slog.String("worker_id", id.String())),
		handlers:     make(map[string]Handler),
	}, nil
}

// RegisterHandlers registers task handlers by name. A later handler with
// the same name replaces the earlier one.
func (w *Worker) RegisterHandlers(handlers ...Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			w.handlers[h.Name()] = h
		}
	}
}

// Run polls for due tasks until ctx is done, then waits for in-flight
// tasks. It returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		w.mu.RLock()
		empty := len(w.handlers) == 0
		w.mu.RUnlock()
		if empty {
			return ErrNoHandlers
		}

		w.logger.Info("worker started",
			slog.Any("queues", w.queues),
			slog.Int("max_concurrent", cap(w.sem)))

		ticker := time.NewTicker(w.pullInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.wg.Wait()
				w.logger.Info("worker stopped")
				return nil
			case <-ticker.C:
				w.fill(ctx)
			}
		}
	}
}

// fill claims tasks while there are free slots and due work.
func (w *Worker) fill(ctx context.Context) {
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		task, err := w.claim(ctx)
		if task == nil {
			<-w.sem
			if err != nil {
				w.logger.ErrorContext(ctx, "failed to claim task", logger.Error(err))
			}
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(task)
		}()
	}
}

// Drain processes due tasks one by one on the calling goroutine until none
// are left and returns how many were handled.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		task, err := w.claim(ctx)
		if err != nil {
			return n, err
		}
		if task == nil {
			return n, nil
		}
		w.process(task)
		n++
	}
}

func (w *Worker) claim(ctx context.Context) (*Task, error) {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
	if errors.Is(err, ErrNoTaskToClaim) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	return task, nil
}

// process runs the handler on a context detached from the worker lifecycle
// so that shutdown lets in-flight tasks finish within the lock timeout.
func (w *Worker) process(task *Task) {
	log := w.logger.With(
		logger.TaskID(task.ID.String()),
		slog.String("task_name", task.TaskName))

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	if !ok {
		log.Error("no handler registered for task type")
		// Retrying cannot help without a handler.
		if err := w.repo.FailTask(ctx, task.ID, ErrHandlerNotFound.Error()+": "+task.TaskName); err == nil {
			_ = w.repo.MoveToDLQ(ctx, task.ID)
		}
		return
	}

	start := time.Now()
	err := w.safeHandle(ctx, handler, task)
	duration := time.Since(start)

	if err == nil {
		if err := w.repo.CompleteTask(ctx, task.ID); err != nil {
			log.Error("failed to mark task completed", logger.Error(err))
			return
		}
		log.Debug("task completed", slog.Duration("duration", duration))
		return
	}

	log.Error("task failed",
		slog.Int("retry_count", int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		logger.Error(err))

	if err := w.repo.FailTask(ctx, task.ID, err.Error()); err != nil {
		log.Error("failed to record task failure", logger.Error(err))
		return
	}
	if retry.IsPermanent(err) || task.RetryCount+1 >= task.MaxRetries {
		if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
			log.Error("failed to move task to dead letter queue", logger.Error(err))
			return
		}
		log.Warn("task moved to dead letter queue")
	}
}

func (w *Worker) safeHandle(ctx context.Context, h Handler, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return h.Handle(ctx, task.Payload)
}
