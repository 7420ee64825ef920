// Package redis connects the verdict cache to its Redis backend.
//
// It wraps go-redis with retrying connection setup driven by environment
// configuration, plus a readiness probe:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	cache := entitlement.NewRedisVerdictCache(client, cfg.VerdictTTL, logger)
package redis
