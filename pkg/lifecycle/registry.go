package lifecycle

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

	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/ratelimiter"
	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// RecoverTaskName is the periodic queue task that re-hydrates coordinators.
const RecoverTaskName = "lifecycle.recover"

// Scheduler is the part of the schedule registry coordinators drive.
type Scheduler interface {
	CreateAll(ctx context.Context, eventID string, startsAt time.Time, subs []event.Subscription) error
	CreateSubscription(ctx context.Context, eventID string, startsAt time.Time, sub event.Subscription) error
	DeleteSubscription(ctx context.Context, eventID, subscriptionID string) error
	DeleteAll(ctx context.Context, eventID string) error
}

// Dispatcher sends notifications for an event.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventID string, msg notifications.Message, subscriptionIDs ...string) (notifications.Report, error)
}

// Registry runs at most one Coordinator per event in this process and,
// through the Lease, across processes.
type Registry struct {
	repo       event.Repository
	scheduler  Scheduler
	dispatcher Dispatcher

	states  StateStore
	inbox   Inbox
	lease   Lease
	limiter ratelimiter.RateLimiter
	closers []func()

	cfg    Config
	owner  string
	now    func() time.Time
	logger *slog.Logger

	mu           sync.Mutex
	coordinators map[string]*Coordinator
	closed       bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewRegistry creates a registry. Without options it keeps states, inbox and
// leases in memory.
func NewRegistry(repo event.Repository, scheduler Scheduler, dispatcher Dispatcher, opts ...Option) (*Registry, error) {
	if repo == nil || scheduler == nil || dispatcher == nil {
		return nil, errors.New("lifecycle: repository, scheduler and dispatcher are required")
	}

	r := &Registry{
		repo:         repo,
		scheduler:    scheduler,
		dispatcher:   dispatcher,
		cfg:          DefaultConfig(),
		owner:        uuid.NewString(),
		now:          time.Now,
		logger:       slog.Default(),
		coordinators: make(map[string]*Coordinator),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.states == nil {
		r.states = NewMemoryStateStore()
	}
	if r.inbox == nil {
		r.inbox = NewMemoryInbox()
	}
	if r.lease == nil {
		r.lease = NewMemoryLease()
	}
	if r.limiter == nil {
		store := ratelimiter.NewMemoryStore()
		bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
			Capacity:       r.cfg.ManualBurst,
			RefillRate:     1,
			RefillInterval: r.cfg.ManualRefill,
		}, ratelimiter.WithClock(r.now), ratelimiter.WithKeyPrefix("manual:"))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("manual notification limiter: %w", err)
		}
		r.limiter = bucket
		r.closers = append(r.closers, store.Close)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Start launches the coordinator for eventID. The starting phase runs on the
// caller goroutine, so a missing event or a failure to create schedules is
// returned here after cleanup. Reads that keep failing while a persisted
// coordinator resumes leave its state and schedules for the next Recover.
func (r *Registry) Start(ctx context.Context, eventID string) error {
	c, err := r.reserve(eventID)
	if err != nil {
		return err
	}

	ok, err := r.lease.Acquire(ctx, eventID, r.owner, r.cfg.LeaseTTL)
	if err != nil || !ok {
		r.release(c)
		if err != nil {
			return fmt.Errorf("acquire lease: %w", err)
		}
		return fmt.Errorf("%w: %s is owned by another process", ErrAlreadyRunning, eventID)
	}

	if err := c.start(ctx); err != nil {
		r.release(c)
		return err
	}

	runCtx, cancel := context.WithCancel(r.ctx)
	c.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		c.run(runCtx)
		r.release(c)
	}()
	return nil
}

func (r *Registry) reserve(eventID string) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrShuttingDown
	}
	if _, ok := r.coordinators[eventID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, eventID)
	}
	c := newCoordinator(r, eventID)
	r.coordinators[eventID] = c
	return c, nil
}

func (r *Registry) release(c *Coordinator) {
	r.mu.Lock()
	if r.coordinators[c.eventID] == c {
		delete(r.coordinators, c.eventID)
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CleanupTimeout)
	defer cancel()
	if err := r.lease.Release(ctx, c.eventID, r.owner); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release lease", logger.EventID(c.eventID), logger.Error(err))
	}
}

func (r *Registry) get(eventID string) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coordinators[eventID]
}

// Signal validates s and queues it for the coordinator of eventID.
// Processing happens asynchronously in arrival order.
func (r *Registry) Signal(ctx context.Context, eventID string, s Signal) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c := r.get(eventID)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNotActive, eventID)
	}

	c.sigMu.Lock()
	if c.closed.Load() {
		c.sigMu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotActive, eventID)
	}
	err := r.accept(ctx, eventID, s)
	c.sigMu.Unlock()
	if err != nil {
		return err
	}
	c.poke()
	return nil
}

// Submit delivers s wherever the coordinator of eventID runs. A persisted
// coordinator that runs nowhere is recovered here first; one owned by another
// process gets s through the shared inbox.
func (r *Registry) Submit(ctx context.Context, eventID string, s Signal) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if r.get(eventID) != nil {
		return r.Signal(ctx, eventID, s)
	}

	err := r.lookup(ctx, func(ctx context.Context) error {
		_, err := r.states.Load(ctx, eventID)
		return err
	})
	switch {
	case errors.Is(err, ErrStateNotFound):
		return fmt.Errorf("%w: %s", ErrNotActive, eventID)
	case err != nil:
		return fmt.Errorf("load coordinator state: %w", err)
	}

	err = r.Start(ctx, eventID)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRunning) && r.get(eventID) == nil:
		return r.accept(ctx, eventID, s)
	case errors.Is(err, ErrAlreadyRunning):
	case errors.Is(err, event.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotActive, eventID)
	default:
		return err
	}
	return r.Signal(ctx, eventID, s)
}

// accept applies the manual notification rate and appends s to the inbox.
func (r *Registry) accept(ctx context.Context, eventID string, s Signal) error {
	if s.Kind == SignalManualNotification {
		res, err := r.limiter.Allow(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check manual notification rate: %w", err)
		}
		if !res.Allowed() {
			return fmt.Errorf("%w: retry in %s", ErrRateLimited, res.RetryAfter().Round(time.Second))
		}
	}

	id, err := r.inbox.Append(ctx, eventID, s)
	if err != nil {
		return fmt.Errorf("queue signal: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "signal queued",
		logger.EventID(eventID),
		logger.Signal(string(s.Kind)),
		slog.String("signal_id", id),
	)
	return nil
}

// lookup retries a read that a coordinator needs to start. Missing events
// and states are final and come back unwrapped.
func (r *Registry) lookup(ctx context.Context, fn func(context.Context) error) error {
	var last error
	err := retry.Do(ctx, r.lookupPolicy(), func(ctx context.Context, _ int) error {
		last = fn(ctx)
		if errors.Is(last, event.ErrNotFound) || errors.Is(last, ErrStateNotFound) {
			return retry.Permanent(last)
		}
		return last
	})
	if retry.IsPermanent(err) {
		return last
	}
	return err
}

func (r *Registry) lookupPolicy() retry.Policy {
	p := retry.Policy{MaxAttempts: max(r.cfg.LookupAttempts, 1)}
	if r.cfg.LookupBackoff > 0 {
		p.Backoff = retry.ExponentialBackoff{
			InitialInterval: r.cfg.LookupBackoff,
			MaxInterval:     10 * r.cfg.LookupBackoff,
			Multiplier:      2,
		}
	}
	return p
}

// Snapshot returns a copy of the runtime state of a running coordinator.
func (r *Registry) Snapshot(eventID string) (State, error) {
	c := r.get(eventID)
	if c == nil {
		return State{}, fmt.Errorf("%w: %s", ErrNotActive, eventID)
	}
	return c.snapshot.Load().Clone(), nil
}

// Done returns a channel closed when the coordinator of eventID exits.
func (r *Registry) Done(eventID string) (<-chan struct{}, error) {
	c := r.get(eventID)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotActive, eventID)
	}
	return c.Done(), nil
}

// Running lists event ids with a coordinator in this process.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.coordinators))
}

// Recover starts coordinators for every persisted non-terminated state that
// is not running here. Events owned by another process are skipped.
func (r *Registry) Recover(ctx context.Context) (int, error) {
	ids, err := r.states.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list coordinator states: %w", err)
	}

	started := 0
	var errs []error
	for _, id := range ids {
		if r.get(id) != nil {
			continue
		}
		err := r.Start(ctx, id)
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrAlreadyRunning):
		case errors.Is(err, ErrShuttingDown):
			return started, errors.Join(errs...)
		default:
			errs = append(errs, fmt.Errorf("recover %s: %w", id, err))
		}
	}

	if started > 0 {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "coordinators recovered", slog.Int("count", started))
	}
	return started, errors.Join(errs...)
}

// RecoverTask is the periodic queue handler calling Recover.
func (r *Registry) RecoverTask() queue.Handler {
	return queue.NewPeriodicTaskHandler(RecoverTaskName, func(ctx context.Context) error {
		_, err := r.Recover(ctx)
		return err
	})
}

// Shutdown stops every coordinator without terminating its event: schedules
// and persisted state stay so another process or a restart can recover them.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	defer func() {
		for _, fn := range r.closers {
			fn()
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lifecycle shutdown: %w", ctx.Err())
	}
}

// Run blocks until ctx is done and then shuts the registry down. It returns
// a function suitable for errgroup.
func (r *Registry) Run(ctx context.Context) func() error {
	return func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.CleanupTimeout)
		defer cancel()
		return r.Shutdown(shutdownCtx)
	}
}
