package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/statemachine"
)

// Coordinator owns the runtime state of one event. State is only touched by
// the goroutine that runs the coordinator; other goroutines read snapshots.
type Coordinator struct {
	eventID string
	r       *Registry
	log     *slog.Logger
	sm      statemachine.StateMachine
	state   State

	snapshot atomic.Pointer[State]
	sigMu    sync.Mutex  // orders Signal appends against seal
	closed   atomic.Bool // not accepting signals

	terminated bool
	wake       chan struct{}
	done       chan struct{}
	cancel     context.CancelFunc
}

func newCoordinator(r *Registry, eventID string) *Coordinator {
	c := &Coordinator{
		eventID: eventID,
		r:       r,
		log:     r.logger.With(logger.EventID(eventID)),
		state:   State{EventID: eventID, Phase: PhaseStarting},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.closed.Store(true)
	c.sm = statemachine.MustNew(PhaseStarting,
		statemachine.WithTransitions([]statemachine.TransitionDef{
			{From: PhaseStarting, To: PhaseActive, Event: transitionActivate},
			{From: PhaseStarting, To: PhaseTerminating, Event: transitionTerminate},
			{From: PhaseActive, To: PhaseTerminating, Event: transitionTerminate},
			{From: PhaseTerminating, To: PhaseDone, Event: transitionFinish},
		}),
		statemachine.WithListener(c.onTransition),
	)
	c.publish()
	return c
}

// Done is closed when the coordinator goroutine has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) onTransition(ctx context.Context, from, to statemachine.State, _ statemachine.Event) {
	c.state.Phase = Phase(to.Name())
	c.log.LogAttrs(ctx, slog.LevelDebug, "coordinator phase changed",
		slog.String("from", from.Name()),
		slog.String("to", to.Name()),
	)
	if c.state.Phase != PhaseDone {
		c.persist(ctx)
	}
	c.publish()
}

// start runs the starting phase on the caller goroutine. A coordinator
// without stored state terminates and cleans up on error. One with stored
// state from an earlier run keeps it, and its schedules, for a later Recover
// unless the event itself is gone.
func (c *Coordinator) start(ctx context.Context) error {
	var stored State
	err := c.r.lookup(ctx, func(ctx context.Context) error {
		var err error
		stored, err = c.r.states.Load(ctx, c.eventID)
		return err
	})
	hasState := err == nil
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return c.abandon(fmt.Errorf("load state: %w", err))
	}

	if !hasState {
		// Entries left behind by an earlier coordinator of the same event.
		if err := c.r.inbox.Delete(ctx, c.eventID); err != nil {
			return c.fail(fmt.Errorf("clear inbox: %w", err))
		}
	}
	c.open()

	stop := c.fail
	if hasState {
		stop = c.abandon
	}

	err = c.r.lookup(ctx, func(ctx context.Context) error {
		exists, err := c.r.repo.EventExists(ctx, c.eventID)
		if err == nil && !exists {
			return fmt.Errorf("%w: event %s", event.ErrNotFound, c.eventID)
		}
		return err
	})
	if err != nil {
		return stop(fmt.Errorf("check event: %w", err))
	}

	recovered := hasState && stored.Phase == PhaseActive
	if recovered {
		c.state = stored
		c.state.Phase = PhaseStarting
	} else {
		var e event.Event
		err := c.r.lookup(ctx, func(ctx context.Context) error {
			var err error
			e, err = c.r.repo.GetEvent(ctx, c.eventID)
			return err
		})
		if err != nil {
			return stop(fmt.Errorf("load event: %w", err))
		}
		c.state.Event = e
		c.state.Cursor = stored.Cursor
		c.persist(ctx)
		c.notify(ctx, createdMessage(e))
	}

	var subs []event.Subscription
	err = c.r.lookup(ctx, func(ctx context.Context) error {
		var err error
		subs, err = c.r.repo.ListActiveSubscriptions(ctx, c.eventID)
		return err
	})
	if err != nil {
		return stop(fmt.Errorf("list subscriptions: %w", err))
	}
	if err := c.r.scheduler.CreateAll(ctx, c.eventID, c.state.Event.StartsAt, subs); err != nil {
		return stop(fmt.Errorf("create schedules: %w", err))
	}

	if err := c.sm.Fire(ctx, transitionActivate, nil); err != nil {
		return c.fail(err)
	}
	c.log.LogAttrs(ctx, slog.LevelInfo, "coordinator started",
		slog.Bool("recovered", recovered),
		slog.Int("subscriptions", len(subs)),
		slog.Int("generation", c.state.Generation),
	)
	return nil
}

func (c *Coordinator) fail(err error) error {
	c.log.LogAttrs(context.Background(), slog.LevelError, "coordinator failed to start", logger.Error(err))
	c.terminate(OutcomeFailed)
	close(c.done)
	return err
}

// abandon gives up a start attempt without touching stored state, inbox or
// schedules. A missing event still terminates.
func (c *Coordinator) abandon(err error) error {
	if errors.Is(err, event.ErrNotFound) {
		return c.fail(err)
	}
	c.seal()
	c.log.LogAttrs(context.Background(), slog.LevelWarn, "coordinator start deferred, state kept for recovery", logger.Error(err))
	close(c.done)
	return err
}

// open starts accepting signals.
func (c *Coordinator) open() {
	c.sigMu.Lock()
	c.closed.Store(false)
	c.sigMu.Unlock()
}

// seal stops accepting signals. Once it returns no Signal call is between
// its closed check and its inbox append.
func (c *Coordinator) seal() {
	c.sigMu.Lock()
	c.closed.Store(true)
	c.sigMu.Unlock()
}

// run is the coordinator loop. Returning without terminate leaves the state
// persisted for recovery.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if p := recover(); p != nil {
			c.log.LogAttrs(context.Background(), slog.LevelError, "coordinator panicked", slog.Any("panic", p))
			c.terminate(OutcomeFailed)
		}
	}()

	end := time.NewTimer(c.untilEnd())
	defer end.Stop()

	renewEvery := max(c.r.cfg.LeaseTTL/3, time.Second)
	renew := time.NewTicker(renewEvery)
	defer renew.Stop()

	// Replay whatever arrived before or during startup.
	c.poke()

	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(context.Background(), "coordinator stopped for shutdown")
			return

		case <-renew.C:
			ok, err := c.r.lease.Renew(ctx, c.eventID, c.r.owner, c.r.cfg.LeaseTTL)
			if err != nil {
				c.log.LogAttrs(ctx, slog.LevelWarn, "failed to renew lease", logger.Error(err))
				continue
			}
			if !ok {
				c.seal()
				c.log.WarnContext(ctx, "lease lost, coordinator stops")
				return
			}
			// Picks up signals other processes appended to the shared inbox.
			c.poke()

		case <-end.C:
			c.terminate(OutcomeCompleted)
			return

		case <-c.wake:
			outcome, rearm := c.drain(ctx)
			if outcome != "" {
				c.terminate(outcome)
				return
			}
			if rearm {
				if !end.Stop() {
					select {
					case <-end.C:
					default:
					}
				}
				end.Reset(c.untilEnd())
			}
		}
	}
}

func (c *Coordinator) untilEnd() time.Duration {
	return max(c.state.endAt(c.r.cfg.DefaultDuration).Sub(c.r.now()), 0)
}

// drain processes inbox entries after the cursor in order. It returns a
// non-empty outcome when a signal terminated the coordinator.
func (c *Coordinator) drain(ctx context.Context) (Outcome, bool) {
	envs, err := c.r.inbox.Read(ctx, c.eventID, c.state.Cursor)
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "failed to read inbox", logger.Error(err))
		time.AfterFunc(time.Second, c.poke)
		return "", false
	}

	rearm := false
	for _, env := range envs {
		res := c.handle(ctx, env.Signal)
		rearm = rearm || res.rearm

		entry := HistoryEntry{SignalID: env.ID, Kind: env.Signal.Kind, ProcessedAt: c.r.now()}
		if res.err != nil {
			entry.Error = res.err.Error()
			c.log.LogAttrs(ctx, slog.LevelError, "signal failed",
				logger.Signal(string(env.Signal.Kind)),
				slog.String("signal_id", env.ID),
				logger.Error(res.err),
			)
		}
		c.state.Cursor = env.ID
		c.state.record(entry, c.r.cfg.HistoryLimit)
		c.persist(ctx)

		if res.outcome != "" {
			return res.outcome, rearm
		}
	}
	return "", rearm
}

type handleResult struct {
	outcome Outcome
	rearm   bool
	err     error
}

func (c *Coordinator) handle(ctx context.Context, s Signal) handleResult {
	switch s.Kind {
	case SignalParticipantAdded:
		return handleResult{err: c.participantAdded(ctx, s.SubscriptionID)}

	case SignalParticipantRemoved:
		return handleResult{err: c.r.scheduler.DeleteSubscription(ctx, c.eventID, s.SubscriptionID)}

	case SignalEventUpdated:
		if s.Patch == nil {
			return handleResult{}
		}
		return c.eventUpdated(ctx, *s.Patch)

	case SignalManualNotification:
		c.notify(ctx, notifications.Message{Level: s.Level, Title: s.Title, Body: s.Body}, s.SubscriptionIDs...)
		return handleResult{}

	case SignalCancelEvent:
		c.notify(ctx, cancelledMessage(c.state.Event))
		now := c.r.now()
		c.state.Cancelled = true
		c.state.Event.CancelledAt = &now
		return handleResult{outcome: OutcomeCancelled}
	}
	return handleResult{err: fmt.Errorf("%w: unknown kind %q", ErrInvalidSignal, s.Kind)}
}

func (c *Coordinator) participantAdded(ctx context.Context, subscriptionID string) error {
	sub, err := c.r.repo.GetSubscription(ctx, subscriptionID)
	if errors.Is(err, event.ErrNotFound) {
		c.log.LogAttrs(ctx, slog.LevelWarn, "added subscription not found", logger.SubscriptionID(subscriptionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if !sub.Active || sub.EventID != c.eventID {
		return nil
	}
	return c.r.scheduler.CreateSubscription(ctx, c.eventID, c.state.Event.StartsAt, sub)
}

func (c *Coordinator) eventUpdated(ctx context.Context, patch event.Patch) handleResult {
	updated, changes := patch.Apply(c.state.Event)
	if len(changes) == 0 {
		return handleResult{}
	}
	c.state.Event = updated
	c.persist(ctx)

	var err error
	if event.StartChanged(changes) {
		err = c.reschedule(ctx)
	}
	c.notify(ctx, updatedMessage(updated, changes))

	return handleResult{
		rearm: event.StartChanged(changes) || event.EndChanged(changes),
		err:   err,
	}
}

// reschedule replaces every schedule of the event with ones for the current start time.
func (c *Coordinator) reschedule(ctx context.Context) error {
	if err := c.r.scheduler.DeleteAll(ctx, c.eventID); err != nil {
		return fmt.Errorf("delete schedules: %w", err)
	}
	subs, err := c.r.repo.ListActiveSubscriptions(ctx, c.eventID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if err := c.r.scheduler.CreateAll(ctx, c.eventID, c.state.Event.StartsAt, subs); err != nil {
		return fmt.Errorf("create schedules: %w", err)
	}
	return nil
}

// notify dispatches msg and counts it towards compaction. Delivery problems
// are in the report; only a missing event is an error and it is logged.
func (c *Coordinator) notify(ctx context.Context, msg notifications.Message, subscriptionIDs ...string) {
	report, err := c.r.dispatcher.Dispatch(ctx, c.eventID, msg, subscriptionIDs...)
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "notification not dispatched",
			slog.String("title", msg.Title),
			logger.Error(err),
		)
	} else {
		c.log.LogAttrs(ctx, slog.LevelInfo, "notification dispatched",
			slog.String("title", msg.Title),
			slog.Int("delivered", report.Delivered),
			slog.Int("failed", report.Failed),
			slog.Int("no_targets", report.NoTargets),
		)
	}

	c.state.NotificationCount++
	if t := c.r.cfg.CompactionThreshold; t > 0 && c.state.NotificationCount >= t {
		c.compact(ctx)
	}
}

func (c *Coordinator) compact(ctx context.Context) {
	c.state.compact()
	if err := c.r.inbox.Trim(ctx, c.eventID, c.state.Cursor); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "failed to trim inbox", logger.Error(err))
	}
	c.persist(ctx)
	c.log.LogAttrs(ctx, slog.LevelInfo, "coordinator state compacted", slog.Int("generation", c.state.Generation))
}

// terminate runs the cleanup exactly once: schedules, inbox and persisted
// state of the event are removed. Errors are logged, never returned.
func (c *Coordinator) terminate(outcome Outcome) {
	if c.terminated {
		return
	}
	c.terminated = true
	c.seal()

	ctx, cancel := context.WithTimeout(context.Background(), c.r.cfg.CleanupTimeout)
	defer cancel()

	c.state.Outcome = outcome
	if err := c.sm.Fire(ctx, transitionTerminate, nil); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "unexpected phase on terminate", logger.Error(err))
	}

	if err := c.r.scheduler.DeleteAll(ctx, c.eventID); err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "failed to delete schedules", logger.Error(err))
	}
	if pending, err := c.r.inbox.Read(ctx, c.eventID, c.state.Cursor); err == nil && len(pending) > 0 {
		c.log.LogAttrs(ctx, slog.LevelWarn, "dropping signals queued behind termination", slog.Int("count", len(pending)))
	}
	if err := c.r.inbox.Delete(ctx, c.eventID); err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "failed to delete inbox", logger.Error(err))
	}
	if err := c.r.states.Delete(ctx, c.eventID); err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "failed to delete state", logger.Error(err))
	}

	if err := c.sm.Fire(ctx, transitionFinish, nil); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "unexpected phase on finish", logger.Error(err))
	}
	c.log.LogAttrs(ctx, slog.LevelInfo, "coordinator terminated", slog.String("outcome", string(outcome)))
}

func (c *Coordinator) persist(ctx context.Context) {
	c.state.UpdatedAt = c.r.now()
	if err := c.r.states.Save(ctx, c.state); err != nil {
		c.log.LogAttrs(ctx, slog.LevelError, "failed to persist state", logger.Error(err))
	}
	c.publish()
}

func (c *Coordinator) publish() {
	s := c.state.Clone()
	c.snapshot.Store(&s)
}
