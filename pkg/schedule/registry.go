package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// Store is the part of the queue storage the registry mutates.
type Store interface {
	queue.EnqueuerRepository
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasksByGroup(ctx context.Context, group string) ([]queue.Task, error)
}

// Registry creates and deletes reminder timers. All operations are
// idempotent and safe to call concurrently.
type Registry struct {
	store       Store
	enqueuer    *queue.Enqueuer
	queue       string
	taskRetries int8
	policy      retry.Policy
	now         func() time.Time
	logger      *slog.Logger
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	r := &Registry{
		store:       store,
		queue:       "reminders",
		taskRetries: 3,
		policy:      retry.SchedulePolicy(),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	enq, err := queue.NewEnqueuer(store, queue.WithDefaultQueue(r.queue), queue.WithEnqueuerClock(r.now))
	if err != nil {
		return nil, err
	}
	r.enqueuer = enq

	return r, nil
}

// Create arms the timer for key at fireAt. A fire time that is not in the
// future is skipped without error; an already armed timer is left untouched.
func (r *Registry) Create(ctx context.Context, key Key, fireAt time.Time) error {
	if !fireAt.After(r.now()) {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping reminder in the past",
			logger.EventID(key.EventID),
			logger.SubscriptionID(key.SubscriptionID),
			logger.Offset(key.Offset))
		return nil
	}

	payload := Fire{EventID: key.EventID, SubscriptionID: key.SubscriptionID, OffsetSeconds: key.Offset}
	err := retry.Do(ctx, r.policy, func(ctx context.Context, _ int) error {
		_, err := r.enqueuer.Enqueue(ctx, payload,
			queue.WithTaskID(key.TaskID()),
			queue.WithGroup(key.EventID),
			queue.WithScheduledAt(fireAt),
			queue.WithMaxRetries(r.taskRetries),
		)
		if errors.Is(err, queue.ErrTaskAlreadyExists) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrMutationFailed, key, err)
	}
	return nil
}

// CreateAll arms a timer for every offset of every subscription relative to startsAt.
func (r *Registry) CreateAll(ctx context.Context, eventID string, startsAt time.Time, subs []event.Subscription) error {
	var errs []error
	for _, sub := range subs {
		if err := r.CreateSubscription(ctx, eventID, startsAt, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateSubscription arms the timers of a single subscription.
func (r *Registry) CreateSubscription(ctx context.Context, eventID string, startsAt time.Time, sub event.Subscription) error {
	var errs []error
	for _, offset := range sub.Offsets {
		key := Key{EventID: eventID, SubscriptionID: sub.ID, Offset: offset}
		if err := r.Create(ctx, key, key.FireAt(startsAt)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete disarms one timer. A missing timer is not an error.
func (r *Registry) Delete(ctx context.Context, key Key) error {
	err := retry.Do(ctx, r.policy, func(ctx context.Context, _ int) error {
		return r.deleteTask(ctx, key.TaskID())
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrMutationFailed, key, err)
	}
	return nil
}

// DeleteSubscription disarms every timer of one subscription of the event.
// It works from the stored timers, so the subscription itself may already be gone.
func (r *Registry) DeleteSubscription(ctx context.Context, eventID, subscriptionID string) error {
	return r.deleteMatching(ctx, eventID, func(f Fire) bool { return f.SubscriptionID == subscriptionID })
}

// DeleteAll disarms every timer of the event.
func (r *Registry) DeleteAll(ctx context.Context, eventID string) error {
	return r.deleteMatching(ctx, eventID, func(Fire) bool { return true })
}

func (r *Registry) deleteMatching(ctx context.Context, eventID string, match func(Fire) bool) error {
	err := retry.Do(ctx, r.policy, func(ctx context.Context, _ int) error {
		tasks, err := r.store.ListTasksByGroup(ctx, eventID)
		if err != nil {
			return err
		}

		var errs []error
		for _, t := range tasks {
			f, err := decodeFire(t)
			if err != nil {
				r.logger.LogAttrs(ctx, slog.LevelWarn, "unreadable reminder task",
					logger.EventID(eventID),
					logger.TaskID(t.ID.String()),
					logger.Error(err))
				continue
			}
			if !match(f) {
				continue
			}
			if err := r.deleteTask(ctx, t.ID); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return fmt.Errorf("%w: delete timers of event %s: %w", ErrMutationFailed, eventID, err)
	}
	return nil
}

func (r *Registry) deleteTask(ctx context.Context, id uuid.UUID) error {
	if err := r.store.DeleteTask(ctx, id); err != nil && !errors.Is(err, queue.ErrTaskNotFound) {
		return err
	}
	return nil
}

// Live returns the keys of the event's timers that have not fired yet,
// sorted by subscription and descending offset.
func (r *Registry) Live(ctx context.Context, eventID string) ([]Key, error) {
	tasks, err := r.store.ListTasksByGroup(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list timers of event %s: %w", eventID, err)
	}

	keys := make([]Key, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != queue.TaskStatusPending {
			continue
		}
		f, err := decodeFire(t)
		if err != nil {
			continue
		}
		keys = append(keys, f.Key())
	}

	slices.SortFunc(keys, func(a, b Key) int {
		if c := strings.Compare(a.SubscriptionID, b.SubscriptionID); c != 0 {
			return c
		}
		switch {
		case a.Offset > b.Offset:
			return -1
		case a.Offset < b.Offset:
			return 1
		}
		return 0
	})
	return keys, nil
}

func decodeFire(t queue.Task) (Fire, error) {
	var f Fire
	if err := json.Unmarshal(t.Payload, &f); err != nil {
		return Fire{}, fmt.Errorf("decode %s: %w", t.TaskName, err)
	}
	return f, nil
}
