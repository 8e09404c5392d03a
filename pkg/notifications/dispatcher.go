package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/async"
	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// errNotSubscribed is recorded for requested subscription ids that are not
// active subscriptions of the event.
var errNotSubscribed = errors.New("subscription is not active for this event")

// Dispatcher resolves subscriptions to channels and fans delivery out to a Backend.
type Dispatcher struct {
	repo        event.Repository
	backend     Backend
	policy      retry.Policy
	concurrency int
	limiter     *async.Limiter
	logger      *slog.Logger
	now         func() time.Time
}

// NewDispatcher creates a dispatcher reading subscriptions and channels from repo.
func NewDispatcher(repo event.Repository, backend Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:        repo,
		backend:     backend,
		policy:      retry.NotificationPolicy(),
		concurrency: 16,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.limiter = async.NewLimiter(d.concurrency)
	return d
}

// Dispatch delivers msg to the active subscriptions of eventID, or only to
// subscriptionIDs when any are given. It returns an error only when the event
// does not exist or its subscriptions cannot be listed; delivery failures are
// recorded in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID string, msg Message, subscriptionIDs ...string) (Report, error) {
	exists, err := d.repo.EventExists(ctx, eventID)
	if err != nil {
		return Report{}, fmt.Errorf("check event %s: %w", eventID, err)
	}
	if !exists {
		return Report{}, fmt.Errorf("%w: event %s", event.ErrNotFound, eventID)
	}

	subs, err := d.repo.ListActiveSubscriptions(ctx, eventID)
	if err != nil {
		return Report{}, fmt.Errorf("list subscriptions of %s: %w", eventID, err)
	}

	msg.EventID = eventID
	if msg.Level == "" {
		msg.Level = LevelInfo
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = d.now()
	}

	ids := targetIDs(subs, subscriptionIDs)
	futures := make([]*async.Future[SubscriptionResult], 0, len(ids))
	for _, id := range ids {
		idx := slices.IndexFunc(subs, func(s event.Subscription) bool { return s.ID == id })
		if idx < 0 {
			futures = append(futures, async.Async(context.WithoutCancel(ctx), id, func(context.Context, string) (SubscriptionResult, error) {
				return SubscriptionResult{SubscriptionID: id, Outcome: OutcomeFailed, Error: errNotSubscribed.Error()}, nil
			}))
			continue
		}
		futures = append(futures, async.Async(ctx, subs[idx], func(ctx context.Context, sub event.Subscription) (SubscriptionResult, error) {
			return d.dispatchSubscription(ctx, sub, msg), nil
		}))
	}

	report := Report{EventID: eventID, Details: make([]SubscriptionResult, 0, len(futures))}
	for i, f := range futures {
		res, err := f.Await()
		if err != nil {
			// Only a context that was already done ends up here.
			res = SubscriptionResult{SubscriptionID: ids[i], Outcome: OutcomeFailed, Error: err.Error()}
		}
		report.add(res)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification dispatched",
		logger.EventID(eventID),
		slog.String("level", string(msg.Level)),
		slog.Int("total", report.Total),
		slog.Int("delivered", report.Delivered),
		slog.Int("failed", report.Failed),
		slog.Int("no_targets", report.NoTargets),
	)
	return report, nil
}

func (d *Dispatcher) dispatchSubscription(ctx context.Context, sub event.Subscription, msg Message) SubscriptionResult {
	res := SubscriptionResult{SubscriptionID: sub.ID}

	channels, resolveErr := d.resolve(ctx, sub)
	if len(channels) == 0 {
		if resolveErr != nil {
			res.Outcome = OutcomeFailed
			res.Error = resolveErr.Error()
			return res
		}
		res.Outcome = OutcomeNoTargets
		return res
	}
	if resolveErr != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "some selectors failed to resolve",
			logger.SubscriptionID(sub.ID),
			logger.Error(resolveErr),
		)
	}

	futures := make([]*async.Future[ChannelResult], len(channels))
	for i, ch := range channels {
		futures[i] = async.Go(ctx, d.limiter, ch, func(ctx context.Context, ch event.Channel) (ChannelResult, error) {
			return d.deliver(ctx, sub, ch, msg), nil
		})
	}

	res.Outcome = OutcomeFailed
	res.Channels = make([]ChannelResult, len(futures))
	for i, f := range futures {
		cr, err := f.Await()
		if err != nil {
			cr = ChannelResult{ChannelID: channels[i].ID, Error: err.Error()}
		}
		if cr.Delivered {
			res.Outcome = OutcomeDelivered
		}
		res.Channels[i] = cr
	}
	return res
}

// resolve expands every selector and dedupes channels by id, keeping the
// order of first appearance.
func (d *Dispatcher) resolve(ctx context.Context, sub event.Subscription) ([]event.Channel, error) {
	var (
		channels []event.Channel
		errs     []error
		seen     = make(map[string]struct{})
	)
	for _, sel := range sub.Selectors {
		resolved, err := d.repo.ResolveChannels(ctx, sub.OwnerID, sel)
		if err != nil {
			errs = append(errs, fmt.Errorf("selector %s:%s: %w", sel.Kind, sel.Value, err))
			continue
		}
		for _, ch := range resolved {
			if _, ok := seen[ch.ID]; ok {
				continue
			}
			seen[ch.ID] = struct{}{}
			channels = append(channels, ch)
		}
	}
	return channels, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, sub event.Subscription, ch event.Channel, msg Message) ChannelResult {
	res := ChannelResult{ChannelID: ch.ID}

	err := retry.Do(ctx, d.policy, func(ctx context.Context, attempt int) error {
		res.Attempts = attempt
		err := d.backend.Send(ctx, ch, msg)

		var partial *PartialError
		if errors.As(err, &partial) {
			res.Partial = true
			d.logger.LogAttrs(ctx, slog.LevelWarn, "channel partially delivered",
				logger.SubscriptionID(sub.ID),
				logger.ChannelID(ch.ID),
				logger.Error(err),
			)
			return nil
		}
		return err
	})
	if err != nil {
		res.Error = err.Error()
		d.logger.LogAttrs(ctx, slog.LevelError, "channel delivery failed",
			logger.EventID(msg.EventID),
			logger.SubscriptionID(sub.ID),
			logger.ChannelID(ch.ID),
			slog.Int("attempts", res.Attempts),
			logger.Error(err),
		)
		return res
	}

	res.Delivered = true
	return res
}

// targetIDs returns the subscription ids to dispatch to, deduplicated.
func targetIDs(subs []event.Subscription, requested []string) []string {
	if len(requested) == 0 {
		ids := make([]string, len(subs))
		for i, s := range subs {
			ids[i] = s.ID
		}
		return ids
	}

	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
