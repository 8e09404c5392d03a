package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/schedule"
)

// Dispatcher sends a message to selected subscriptions of an event.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventID string, msg notifications.Message, subscriptionIDs ...string) (notifications.Report, error)
}

// Handler sends one reminder per fired schedule. It keeps no state between
// calls and always reads the current event from the repository.
type Handler struct {
	repo       event.Repository
	dispatcher Dispatcher
	location   *time.Location
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLocation sets the time zone start times are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// NewHandler creates a reminder handler.
func NewHandler(repo event.Repository, dispatcher Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		repo:       repo,
		dispatcher: dispatcher,
		location:   time.UTC,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TaskHandler exposes Handle to the queue worker under the schedule.Fire task name.
func (h *Handler) TaskHandler() queue.Handler {
	return queue.NewTaskHandler[schedule.Fire](h.Handle)
}

// Handle sends the reminder for fire. A missing or cancelled event, a
// missing or inactive subscription, and an offset the subscription no longer
// requests all end the task without error.
func (h *Handler) Handle(ctx context.Context, fire schedule.Fire) error {
	log := h.logger.With(
		logger.EventID(fire.EventID),
		logger.SubscriptionID(fire.SubscriptionID),
		logger.Offset(fire.OffsetSeconds),
	)

	e, err := h.repo.GetEvent(ctx, fire.EventID)
	if errors.Is(err, event.ErrNotFound) {
		log.DebugContext(ctx, "event gone, reminder skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if e.IsCancelled() {
		log.DebugContext(ctx, "event cancelled, reminder skipped")
		return nil
	}

	sub, err := h.repo.GetSubscription(ctx, fire.SubscriptionID)
	if errors.Is(err, event.ErrNotFound) {
		log.DebugContext(ctx, "subscription gone, reminder skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if !sub.Active || sub.EventID != e.ID || !slices.Contains(sub.Offsets, fire.OffsetSeconds) {
		log.DebugContext(ctx, "subscription no longer wants this reminder")
		return nil
	}

	report, err := h.dispatcher.Dispatch(ctx, e.ID, Format(e, fire.OffsetSeconds, h.location), sub.ID)
	if errors.Is(err, event.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatch reminder: %w", err)
	}

	if report.Delivered == 0 {
		log.LogAttrs(ctx, slog.LevelWarn, "reminder not delivered",
			slog.Int("failed", report.Failed),
			slog.Int("no_targets", report.NoTargets),
		)
		return nil
	}
	log.InfoContext(ctx, "reminder sent")
	return nil
}
