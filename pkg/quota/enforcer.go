package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CheckInput carries the resolved access state the enforcer layers on top
// of. The enforcer never re-resolves entitlement; callers pass in what the
// resolver already decided.
type CheckInput struct {
	// Trialing means the paid module is entitled through its trial window,
	// which carries the fixed trial ceiling.
	Trialing bool

	// TierID is the purchased tier. Unknown or empty IDs are treated as
	// unconstrained (fail open on missing configuration, logged at warn).
	TierID string

	// DependencyOnly means only the foundation module is active, which
	// carries no employee ceiling of its own.
	DependencyOnly bool
}

// Enforcer applies tier-based employee ceilings on top of entitlement.
// Over-quota tenants are never hard-blocked away from their data: a bounded
// grace window first stops count-increasing writes, and only after it lapses
// do all writes block until the tenant upgrades.
type Enforcer struct {
	tiers         map[string]Tier
	counter       CounterFunc
	graceStore    GraceStore
	graceDuration time.Duration
	clock         func() time.Time
	logger        *slog.Logger
}

// Option configures optional Enforcer settings.
type Option func(*Enforcer)

// WithGraceDuration overrides the over-quota grace window length (default 7 days).
func WithGraceDuration(d time.Duration) Option {
	return func(e *Enforcer) {
		if d > 0 {
			e.graceDuration = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Enforcer) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the enforcer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnforcer creates an Enforcer. Panics if the counter is nil to fail fast
// during initialization; a nil grace store falls back to in-memory.
func NewEnforcer(ctx context.Context, src TierSource, counter CounterFunc, graceStore GraceStore, opts ...Option) (*Enforcer, error) {
	if counter == nil {
		panic("quota: CounterFunc is required")
	}
	if src == nil {
		src = NewMemTierSource(nil)
	}
	if graceStore == nil {
		graceStore = NewMemoryGraceStore()
	}

	tiers, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	e := &Enforcer{
		tiers:         tiers,
		counter:       counter,
		graceStore:    graceStore,
		graceDuration: 7 * 24 * time.Hour,
		clock:         func() time.Time { return time.Now().UTC() },
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Limit returns the effective employee ceiling for the given access state.
func (e *Enforcer) Limit(ctx context.Context, in CheckInput) int64 {
	if in.Trialing {
		return TrialEmployeeLimit
	}
	if in.DependencyOnly {
		return Unlimited
	}
	if in.TierID == "" {
		return Unlimited
	}

	tier, ok := e.tiers[in.TierID]
	if !ok {
		// Missing tier configuration is not a reason to lock a paying
		// tenant out of their data.
		e.logger.WarnContext(ctx, "unknown quota tier, treating as unlimited",
			slog.String("tier_id", in.TierID))
		return Unlimited
	}
	return tier.MaxEmployees
}

// Check evaluates the tenant's live entity count against the effective
// ceiling and manages the over-quota grace window.
func (e *Enforcer) Check(ctx context.Context, tenantID uuid.UUID, in CheckInput) (Decision, error) {
	now := e.clock()
	limit := e.Limit(ctx, in)

	count, err := e.counter(ctx, tenantID)
	if err != nil {
		return Decision{}, errors.Join(ErrFailedToCount, err)
	}

	if limit == Unlimited {
		e.clearWindow(ctx, tenantID)
		return Decision{Limit: limit, Count: count, CanAddEntities: true, CanWrite: true}, nil
	}

	if count < limit {
		e.clearWindow(ctx, tenantID)
		return Decision{Limit: limit, Count: count, CanAddEntities: true, CanWrite: true}, nil
	}

	if count == limit {
		// At the ceiling: nothing may grow the count, everything else works.
		e.clearWindow(ctx, tenantID)
		return Decision{
			Limit:          limit,
			Count:          count,
			CanAddEntities: false,
			CanWrite:       true,
			Reason:         "Employee limit reached. Upgrade your tier to add more employees.",
		}, nil
	}

	// Over the ceiling. Open a grace window once per breach; existing data
	// stays visible throughout, only writes are constrained.
	window, err := e.graceStore.Get(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrNoGraceWindow) {
		return Decision{}, errors.Join(ErrGraceStoreFailure, err)
	}
	if window == nil {
		window = &GraceWindow{
			TenantID:  tenantID,
			Limit:     limit,
			OpenedAt:  now,
			ExpiresAt: now.Add(e.graceDuration),
		}
		if err := e.graceStore.Put(ctx, window); err != nil {
			return Decision{}, errors.Join(ErrGraceStoreFailure, err)
		}
	}

	expires := window.ExpiresAt
	if window.Active(now) {
		return Decision{
			Limit:          limit,
			Count:          count,
			OverLimit:      true,
			CanAddEntities: false,
			CanWrite:       true,
			GraceExpiresAt: &expires,
			Reason:         "You are over your employee limit. Upgrade your tier before the grace period ends.",
		}, nil
	}

	return Decision{
		Limit:          limit,
		Count:          count,
		OverLimit:      true,
		CanAddEntities: false,
		CanWrite:       false,
		GraceExpiresAt: &expires,
		Reason:         "Your over-limit grace period has ended. Upgrade your tier to make changes.",
	}, nil
}

// clearWindow drops a stale grace window once the tenant is back under the
// ceiling. Store failures here only delay cleanup, so they are logged and
// swallowed.
func (e *Enforcer) clearWindow(ctx context.Context, tenantID uuid.UUID) {
	if err := e.graceStore.Clear(ctx, tenantID); err != nil {
		e.logger.WarnContext(ctx, "failed to clear quota grace window",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()))
	}
}
