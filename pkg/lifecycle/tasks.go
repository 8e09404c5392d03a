package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// StartRequest asks a worker to start the coordinator of an event.
// Enqueued under the task name "lifecycle.StartRequest".
type StartRequest struct {
	EventID string `json:"event_id"`
}

// SignalRequest carries a signal for the coordinator of an event.
// Enqueued under the task name "lifecycle.SignalRequest".
type SignalRequest struct {
	EventID string `json:"event_id"`
	Signal  Signal `json:"signal"`
}

// StartTask starts coordinators requested through the task queue. A
// coordinator that already runs, here or elsewhere, completes the task.
func (r *Registry) StartTask() queue.Handler {
	return queue.NewTaskHandler[StartRequest](func(ctx context.Context, req StartRequest) error {
		err := r.Start(ctx, req.EventID)
		switch {
		case err == nil, errors.Is(err, ErrAlreadyRunning):
			return nil
		case errors.Is(err, event.ErrNotFound), errors.Is(err, ErrShuttingDown):
			r.logger.LogAttrs(ctx, slog.LevelWarn, "start request rejected", logger.EventID(req.EventID), logger.Error(err))
			return retry.Permanent(err)
		default:
			return err
		}
	})
}

// SignalTask delivers signals enqueued by other services through Submit.
// Signals that can never be delivered go straight to the dead letter queue.
func (r *Registry) SignalTask() queue.Handler {
	return queue.NewTaskHandler[SignalRequest](func(ctx context.Context, req SignalRequest) error {
		err := r.Submit(ctx, req.EventID, req.Signal)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrInvalidSignal), errors.Is(err, ErrNotActive), errors.Is(err, ErrRateLimited):
			r.logger.LogAttrs(ctx, slog.LevelWarn, "signal request rejected",
				logger.EventID(req.EventID),
				logger.Signal(string(req.Signal.Kind)),
				logger.Error(err),
			)
			return retry.Permanent(err)
		default:
			return err
		}
	})
}
