package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VerdictCache stores dashboard verdict maps for a short TTL. It is only
// ever consulted by the bulk listing path; live access decisions always
// recompute against the store.
type VerdictCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (map[string]Verdict, bool)
	Set(ctx context.Context, tenantID uuid.UUID, verdicts map[string]Verdict)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// redisCache implements VerdictCache on go-redis. Cache failures degrade to
// a miss: a flaky Redis must never block a dashboard.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisVerdictCache returns a VerdictCache backed by Redis with the given
// TTL. Panics if client is nil; a non-positive TTL defaults to one minute.
func NewRedisVerdictCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) VerdictCache {
	if client == nil {
		panic("entitlement: redis client is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &redisCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("entitlement:verdicts:%s", tenantID)
}

func (c *redisCache) Get(ctx context.Context, tenantID uuid.UUID) (map[string]Verdict, bool) {
	data, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "verdict cache read failed",
				slog.String("tenant_id", tenantID.String()),
				slog.String("error", err.Error()))
		}
		return nil, false
	}

	var verdicts map[string]Verdict
	if err := json.Unmarshal(data, &verdicts); err != nil {
		// A corrupt entry is dropped rather than surfaced.
		c.Invalidate(ctx, tenantID)
		return nil, false
	}
	return verdicts, true
}

func (c *redisCache) Set(ctx context.Context, tenantID uuid.UUID, verdicts map[string]Verdict) {
	data, err := json.Marshal(verdicts)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(tenantID), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "verdict cache write failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()))
	}
}

func (c *redisCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := c.client.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "verdict cache invalidation failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()))
	}
}

// CachedResolveAll serves the dashboard bulk query through the cache: hit
// returns the cached map, miss recomputes via ResolveAll and backfills.
func (r *Resolver) CachedResolveAll(ctx context.Context, cache VerdictCache, tenantID uuid.UUID) (map[string]Verdict, error) {
	if cache == nil {
		return r.ResolveAll(ctx, tenantID)
	}
	if verdicts, ok := cache.Get(ctx, tenantID); ok {
		return verdicts, nil
	}

	verdicts, err := r.ResolveAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	cache.Set(ctx, tenantID, verdicts)
	return verdicts, nil
}
