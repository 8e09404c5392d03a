package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the interface for scheduler operations
type SchedulerRepository interface {
	CreateTask(ctx context.Context, task *Task) error

	// GetPendingTaskByName returns the pending periodic task with the given
	// name, or ErrTaskNotFound.
	GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error)
}

// Scheduler materialises periodic tasks into the queue. Only one pending
// instance of each periodic task exists at a time, so several processes may
// run a Scheduler against the same storage.
type Scheduler struct {
	repo     SchedulerRepository
	interval time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	tasks map[string]*scheduledTask
}

type scheduledTask struct {
	name       string
	schedule   Schedule
	queue      string
	priority   Priority
	maxRetries int8
	lastRun    *time.Time
}

// NewScheduler creates a new task scheduler
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		tasks:    make(map[string]*scheduledTask),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...SchedulerTaskOption) error {
	taskOpts := &schedulerTaskOptions{
		queue:      DefaultQueueName,
		priority:   PriorityDefault,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(taskOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &scheduledTask{
		name:       name,
		schedule:   schedule,
		queue:      taskOpts.queue,
		priority:   taskOpts.priority,
		maxRetries: taskOpts.maxRetries,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// ListTasks returns the names of all registered periodic tasks, sorted.
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tasks))
}

// Start checks registered tasks immediately and then on every interval
// until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	empty := len(s.tasks) == 0
	s.mu.RUnlock()
	if empty {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkTasks(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case now := <-ticker.C:
			s.checkTasks(ctx, now)
		}
	}
}

// Run starts the scheduler and returns a function suitable for errgroup.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (s *Scheduler) checkTasks(ctx context.Context, now time.Time) {
	s.mu.RLock()
	tasks := slices.Collect(maps.Values(s.tasks))
	s.mu.RUnlock()

	for _, task := range tasks {
		if err := s.scheduleIfDue(ctx, task, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to schedule periodic task",
				slog.String("task_name", task.name),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) scheduleIfDue(ctx context.Context, task *scheduledTask, now time.Time) error {
	s.mu.RLock()
	last := task.lastRun
	s.mu.RUnlock()

	var next time.Time
	if last == nil {
		next = task.schedule.Next(now)
	} else {
		next = task.schedule.Next(*last)
		if next.After(now) {
			return nil
		}
	}

	existing, err := s.repo.GetPendingTaskByName(ctx, task.name)
	switch {
	case err == nil && existing != nil:
		s.markScheduled(task, existing.ScheduledAt)
		return nil
	case err != nil && !errors.Is(err, ErrTaskNotFound):
		return fmt.Errorf("lookup pending %q: %w", task.name, err)
	}

	if err := s.repo.CreateTask(ctx, &Task{
		ID:          uuid.New(),
		Queue:       task.queue,
		TaskType:    TaskTypePeriodic,
		TaskName:    task.name,
		Status:      TaskStatusPending,
		Priority:    task.priority,
		MaxRetries:  task.maxRetries,
		ScheduledAt: next,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("create periodic task: %w", err)
	}

	s.markScheduled(task, next)
	s.logger.Debug("created periodic task",
		slog.String("task_name", task.name),
		slog.Time("scheduled_for", next))
	return nil
}

func (s *Scheduler) markScheduled(task *scheduledTask, at time.Time) {
	s.mu.Lock()
	task.lastRun = &at
	s.mu.Unlock()
}
