package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workforcekit/entitlement/modules/hr"
	"github.com/workforcekit/entitlement/pkg/config"
	"github.com/workforcekit/entitlement/pkg/entitlement"
	"github.com/workforcekit/entitlement/pkg/gate"
	"github.com/workforcekit/entitlement/pkg/httpserver"
	"github.com/workforcekit/entitlement/pkg/logger"
	"github.com/workforcekit/entitlement/pkg/pg"
	"github.com/workforcekit/entitlement/pkg/quota"
	"github.com/workforcekit/entitlement/pkg/reconciler"
	"github.com/workforcekit/entitlement/pkg/redis"
	"github.com/workforcekit/entitlement/pkg/tenant"
)

// appConfig holds the settings that are not owned by an infrastructure
// package: where the catalog files live.
type appConfig struct {
	// DependenciesFile is the YAML add-on dependency graph. Empty falls back
	// to the built-in HR graph.
	DependenciesFile string `env:"ENTITLEMENT_DEPS_FILE"`

	// TiersFile is the YAML pricing-tier catalog. Empty means every paid
	// tenant is treated as unconstrained.
	TiersFile string `env:"QUOTA_TIERS_FILE"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New(
		logger.WithProduction("entitlementd"),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var appCfg appConfig
	if err := config.Load(&appCfg); err != nil {
		return err
	}
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	var sweepCfg reconciler.Config
	if err := config.Load(&sweepCfg); err != nil {
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

	store := entitlement.NewPGStore(pool)
	resolver := entitlement.NewResolver(store, entitlement.WithLogger(log))

	checker, err := entitlement.NewChecker(ctx, graphSource(appCfg), resolver,
		entitlement.WithCheckerLogger(log))
	if err != nil {
		return err
	}

	enforcer, err := quota.NewEnforcer(ctx, tierSource(appCfg), employeeCounter(pool), nil,
		quota.WithLogger(log))
	if err != nil {
		return err
	}

	accessSvc := hr.NewService(resolver, enforcer,
		hr.WithDataChecker(hasEmployees(pool)),
		hr.WithLogger(log))

	g := gate.New(resolver, checker,
		gate.WithReadOnlyFallback(accessSvc.ReadOnlyFallback()),
		gate.WithLogger(log))

	// The verdict cache is an optimization; a missing Redis only slows the
	// dashboard down.
	readiness := []func(context.Context) error{pg.Healthcheck(pool)}
	var cache entitlement.VerdictCache
	if client, err := redis.Connect(ctx, redisCfg); err != nil {
		log.WarnContext(ctx, "redis unavailable, dashboard verdicts uncached",
			slog.String("error", err.Error()))
	} else {
		defer func() { _ = client.Close() }()
		readiness = append(readiness, redis.Healthcheck(client))
		cache = entitlement.NewRedisVerdictCache(client, redisCfg.VerdictTTL, log)
	}

	router := chi.NewRouter()
	router.Get("/healthz", httpserver.HealthCheckHandler(log))
	router.Get("/readyz", httpserver.HealthCheckHandler(log, readiness...))
	router.Route("/hr", func(r chi.Router) {
		r.Use(tenant.Middleware(nil))
		r.Get("/addons", addonsHandler(resolver, cache))
		r.Mount("/", hr.Router(accessSvc, g, hr.RouterOptions{}))
	})

	sweeper := reconciler.New(store, sweepCfg, reconciler.WithLogger(log))
	go func() {
		if err := sweeper.Start(ctx); err != nil && ctx.Err() == nil {
			log.ErrorContext(ctx, "reconciler stopped", slog.String("error", err.Error()))
		}
	}()
	defer sweeper.Stop()

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}

// addonsHandler serves the dashboard's add-on listing: one verdict per
// logical add-on, variants folded, fronted by the short-TTL cache.
func addonsHandler(resolver *entitlement.Resolver, cache entitlement.VerdictCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenant.IDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		verdicts, err := resolver.CachedResolveAll(r.Context(), cache, tenantID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(verdicts)
	}
}

// graphSource picks the dependency graph: YAML file when configured, the
// built-in HR catalog otherwise.
func graphSource(cfg appConfig) entitlement.GraphSource {
	if cfg.DependenciesFile != "" {
		return entitlement.NewYAMLGraphSource(cfg.DependenciesFile)
	}
	return entitlement.NewMemGraphSource(entitlement.Graph{
		hr.AddonPayroll: {hr.AddonFoundation, hr.AddonSuite},
	})
}

func tierSource(cfg appConfig) quota.TierSource {
	if cfg.TiersFile != "" {
		return quota.NewYAMLTierSource(cfg.TiersFile)
	}
	return nil
}

// employeeCounter backs quota enforcement with a live aggregate over the
// tenant's active roster.
func employeeCounter(pool *pgxpool.Pool) quota.CounterFunc {
	return func(ctx context.Context, tenantID uuid.UUID) (int64, error) {
		var count int64
		err := pool.QueryRow(ctx,
			`SELECT count(*) FROM employees WHERE tenant_id = $1 AND active`,
			tenantID).Scan(&count)
		return count, err
	}
}

// hasEmployees is the pre-existing-data probe behind the read-only fallback.
func hasEmployees(pool *pgxpool.Pool) hr.DataChecker {
	return func(ctx context.Context, tenantID uuid.UUID) (bool, error) {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1)`,
			tenantID).Scan(&exists)
		return exists, err
	}
}
