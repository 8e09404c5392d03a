package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/eventkit/pkg/config"
	"github.com/dmitrymomot/eventkit/pkg/email"
	"github.com/dmitrymomot/eventkit/pkg/environment"
	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/httpserver"
	"github.com/dmitrymomot/eventkit/pkg/lifecycle"
	"github.com/dmitrymomot/eventkit/pkg/logger"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/pg"
	"github.com/dmitrymomot/eventkit/pkg/queue"
	"github.com/dmitrymomot/eventkit/pkg/ratelimiter"
	"github.com/dmitrymomot/eventkit/pkg/redis"
	"github.com/dmitrymomot/eventkit/pkg/reminder"
	"github.com/dmitrymomot/eventkit/pkg/schedule"
	"github.com/dmitrymomot/eventkit/pkg/webhook"
)

type appConfig struct {
	Env            string  `env:"APP_ENV" envDefault:"development"`
	Name           string  `env:"APP_NAME" envDefault:"eventd"`
	Timezone       string  `env:"APP_TIMEZONE" envDefault:"UTC"`
	DefaultOffsets []int64 `env:"EVENT_DEFAULT_OFFSETS" envSeparator:"," envDefault:"86400,3600"`
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	env := environment.Parse(app.Env)
	log := logger.New(logger.WithEnvironment(env, app.Name))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = environment.WithContext(ctx, env)

	if err := run(ctx, app, env, log); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "eventd stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.InfoContext(ctx, "eventd stopped")
}

func run(ctx context.Context, app appConfig, env environment.Environment, log *slog.Logger) error {
	var (
		pgCfg       pg.Config
		redisCfg    redis.Config
		httpCfg     httpserver.Config
		emailCfg    email.Config
		queueCfg    queue.Config
		scheduleCfg schedule.Config
		notifyCfg   notifications.Config
		lcCfg       lifecycle.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&emailCfg) },
		func() error { return config.Load(&queueCfg) },
		func() error { return config.Load(&scheduleCfg) },
		func() error { return config.Load(&notifyCfg) },
		func() error { return config.Load(&lcCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	loc, err := time.LoadLocation(app.Timezone)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	repo := event.NewPostgresRepository(pool, event.NormalizeOffsets(app.DefaultOffsets, nil)...)
	tasks := queue.NewPostgresStorage(pool)

	sender, err := email.NewFromConfig(emailCfg)
	if err != nil {
		return err
	}
	inapp := notifications.NewInAppBackend(notifyCfg.InAppBufferSize,
		notifications.WithMaxUsers(notifyCfg.InAppMaxUsers),
		notifications.WithInAppLogger(log.With(logger.Component("inapp"))),
	)
	defer inapp.Close()

	backend := notifications.NewMultiBackend().
		Register(event.ChannelEmail, notifications.NewEmailBackend(sender)).
		Register(event.ChannelWebhook, notifications.NewWebhookBackend(
			webhook.NewSender(),
			webhook.NewBreakers(notifyCfg.WebhookFailureThreshold, notifyCfg.WebhookSuccessThreshold, notifyCfg.WebhookRecoveryTimeout),
		)).
		Register(event.ChannelInApp, inapp)

	dispatcher := notifications.NewDispatcher(repo, backend,
		append(notifications.FromConfig(notifyCfg), notifications.WithLogger(log.With(logger.Component("notifications"))))...,
	)

	schedules, err := schedule.NewRegistry(tasks,
		append(schedule.FromConfig(scheduleCfg), schedule.WithLogger(log.With(logger.Component("schedule"))))...,
	)
	if err != nil {
		return err
	}

	manual, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(rdb, ""), ratelimiter.Config{
		Capacity:       lcCfg.ManualBurst,
		RefillRate:     1,
		RefillInterval: lcCfg.ManualRefill,
	}, ratelimiter.WithKeyPrefix("manual:"))
	if err != nil {
		return err
	}

	coordinators, err := lifecycle.NewRegistry(repo, schedules, dispatcher,
		lifecycle.WithConfig(lcCfg),
		lifecycle.WithLogger(log.With(logger.Component("lifecycle"))),
		lifecycle.WithStateStore(lifecycle.NewPostgresStateStore(pool)),
		lifecycle.WithInbox(lifecycle.NewRedisInbox(rdb, "")),
		lifecycle.WithLease(lifecycle.NewRedisLease(rdb, "")),
		lifecycle.WithRateLimiter(manual),
	)
	if err != nil {
		return err
	}

	reminders := reminder.NewHandler(repo, dispatcher,
		reminder.WithLogger(log.With(logger.Component("reminder"))),
		reminder.WithLocation(loc),
	)

	worker, err := queue.NewWorker(tasks,
		queue.WithQueues(scheduleCfg.Queue, "default"),
		queue.WithPullInterval(queueCfg.PollInterval),
		queue.WithLockTimeout(queueCfg.LockTimeout),
		queue.WithMaxConcurrentTasks(queueCfg.MaxConcurrentTasks),
		queue.WithWorkerLogger(log.With(logger.Component("worker"))),
	)
	if err != nil {
		return err
	}
	worker.RegisterHandlers(
		reminders.TaskHandler(),
		coordinators.RecoverTask(),
		coordinators.StartTask(),
		coordinators.SignalTask(),
	)

	scheduler, err := queue.NewScheduler(tasks, queue.WithSchedulerLogger(log.With(logger.Component("scheduler"))))
	if err != nil {
		return err
	}
	if err := scheduler.AddTask(lifecycle.RecoverTaskName, queue.EveryInterval(lcCfg.RecoverInterval),
		queue.WithTaskQueue("default"),
	); err != nil {
		return err
	}

	if n, err := coordinators.Recover(ctx); err != nil {
		log.WarnContext(ctx, "startup recovery incomplete", slog.Int("recovered", n), logger.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, environment.Middleware(env))
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, 2*time.Second,
		httpserver.Check{Name: "postgres", Check: pg.Healthcheck(pool)},
		httpserver.Check{Name: "redis", Check: redis.Healthcheck(rdb)},
	))

	server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, r) })
	g.Go(worker.Run(gctx))
	g.Go(scheduler.Run(gctx))
	g.Go(coordinators.Run(gctx))

	return g.Wait()
}
