// Package pg bootstraps the PostgreSQL layer behind the subscription record
// store: a pgx/v5 connection pool with startup retries, goose schema
// migrations, and a health-check closure for readiness probes.
//
// Typical startup:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	store := entitlement.NewPGStore(pool)
package pg
