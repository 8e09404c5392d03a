// Package pg bootstraps the PostgreSQL layer of eventkit on pgx/v5.
//
// Connect opens a pgxpool with retry, Migrate applies the goose migrations
// under db/migrations and Healthcheck feeds the readiness endpoint. Stores in
// other packages accept the DB interface so they run equally on a pool or
// inside a transaction.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError
// classify driver errors for the repositories.
package pg
