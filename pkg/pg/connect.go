package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// Connect opens a pool and pings it, retrying with a linearly growing delay
// until cfg.RetryAttempts run out or ctx is done.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	err = retry.Do(ctx, connectPolicy(cfg), func(ctx context.Context, _ int) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	return pool, nil
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrEmptyConnectionString
	}
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MinConns > cfg.MaxConns && cfg.MaxConns > 0 {
		return nil, fmt.Errorf("%w: min conns %d exceed max conns %d", ErrFailedToParseDBConfig, cfg.MinConns, cfg.MaxConns)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return pc, nil
}

func connectPolicy(cfg Config) retry.Policy {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return retry.Policy{
		MaxAttempts: attempts,
		Backoff:     retry.LinearBackoff{Interval: cfg.RetryInterval, MaxInterval: 4 * cfg.RetryInterval},
	}
}
