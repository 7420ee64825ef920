package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Injected so tests can advance virtual
// time deterministically instead of sleeping.
type Clock func() time.Time

// Resolver maps a stored subscription record and the current wall-clock time
// to an entitlement Verdict. Resolution is a pure computation over a freshly
// fetched record: no locks, no shared mutable state, safe for concurrent use.
type Resolver struct {
	store  RecordStore
	clock  Clock
	logger *slog.Logger
}

// ResolverOption configures optional Resolver settings.
type ResolverOption func(*Resolver)

// WithClock overrides the time source. Intended for tests.
func WithClock(clock Clock) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger used for infrastructure failures.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver backed by the given store.
// Panics if store is nil to fail fast during initialization.
func NewResolver(store RecordStore, opts ...ResolverOption) *Resolver {
	if store == nil {
		panic("entitlement: RecordStore is required")
	}

	r := &Resolver{
		store:  store,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the current entitlement verdict for a tenant/add-on pair.
//
// Not being entitled is a normal result, not an error. The error return is
// reserved for infrastructure failure; even then the returned verdict is a
// fail-closed not_installed shape so callers can always decide access.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID, addon Code) (Verdict, error) {
	return r.ResolveAt(ctx, tenantID, addon, r.clock())
}

// ResolveAt is Resolve evaluated against an explicit point in time.
func (r *Resolver) ResolveAt(ctx context.Context, tenantID uuid.UUID, addon Code, now time.Time) (Verdict, error) {
	record, err := r.lookup(ctx, tenantID, addon)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notInstalledVerdict(addon), nil
		}
		r.logger.ErrorContext(ctx, "entitlement lookup failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("addon", addon.String()),
			slog.String("error", err.Error()))
		return notInstalledVerdict(addon), errors.Join(ErrStoreUnavailable, err)
	}
	return verdictAt(record, addon, now), nil
}

// ResolveFamily computes the most favorable verdict across every record the
// tenant holds in an add-on family. Dependency checks use it so that any one
// satisfying country variant is enough.
func (r *Resolver) ResolveFamily(ctx context.Context, tenantID uuid.UUID, base string) (Verdict, error) {
	return r.ResolveFamilyAt(ctx, tenantID, base, r.clock())
}

// ResolveFamilyAt is ResolveFamily evaluated against an explicit point in time.
func (r *Resolver) ResolveFamilyAt(ctx context.Context, tenantID uuid.UUID, base string, now time.Time) (Verdict, error) {
	addon := NewCode(base)

	records, err := r.store.ListByTenant(ctx, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "entitlement family lookup failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("addon", base),
			slog.String("error", err.Error()))
		return notInstalledVerdict(addon), errors.Join(ErrStoreUnavailable, err)
	}

	best := notInstalledVerdict(addon)
	found := false
	for _, record := range records {
		if record.Addon.Base != base {
			continue
		}
		verdict := verdictAt(record, record.Addon, now)
		if !found || moreFavorable(verdict, best) {
			best = verdict
			found = true
		}
	}
	return best, nil
}

// lookup fetches the record for the exact code, falling back across the
// add-on family in both directions: a variant request falls back to the
// generic record, and a generic request falls back to any provisioned
// variant. This keeps tenants recognized regardless of which edition their
// record was provisioned under.
func (r *Resolver) lookup(ctx context.Context, tenantID uuid.UUID, addon Code) (*Record, error) {
	record, err := r.store.Get(ctx, tenantID, addon)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	if addon.HasVariant() {
		return r.store.Get(ctx, tenantID, addon.Generic())
	}

	// Generic request with no generic record: scan the tenant's records for
	// any variant of the same family.
	records, err := r.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range records {
		if candidate.Addon.SameFamily(addon) {
			return candidate, nil
		}
	}
	return nil, ErrRecordNotFound
}

// verdictAt applies the resolution decision order top to bottom, first match
// wins. The trial check deliberately runs before the install-status check:
// self-serve trials can start before provisioning flips the install status,
// and those tenants must still read as trialing.
func verdictAt(record *Record, addon Code, now time.Time) Verdict {
	if record == nil {
		return notInstalledVerdict(addon)
	}

	if record.BillingStatus == BillingTrialing {
		if record.TrialEndsAt != nil && now.Before(*record.TrialEndsAt) {
			days := daysRemainingAt(now, *record.TrialEndsAt)
			return Verdict{
				Addon:         addon,
				Entitled:      true,
				State:         StateTrial,
				ValidUntil:    record.TrialEndsAt,
				Reason:        ReasonTrial,
				DaysRemaining: days,
				Message:       fmt.Sprintf("Trial active, %s remaining.", pluralDays(days)),
			}
		}
		return Verdict{
			Addon:   addon,
			State:   StateExpired,
			Reason:  ReasonTrialExpired,
			Message: "Your trial has ended. Purchase the add-on to continue.",
		}
	}

	if record.InstallStatus != InstallActive {
		return Verdict{
			Addon:   addon,
			State:   StateCancelled,
			Reason:  ReasonCancelled,
			Message: "This add-on has been disabled for your account.",
		}
	}

	if record.BillingStatus == BillingActive {
		if record.PaidUntil == nil {
			// Unlimited or free edition: entitled with no deadline.
			return Verdict{
				Addon:    addon,
				Entitled: true,
				State:    StateActive,
				Reason:   ReasonActive,
				Message:  "Subscription active.",
			}
		}
		if !now.After(*record.PaidUntil) {
			days := daysRemainingAt(now, *record.PaidUntil)
			return Verdict{
				Addon:         addon,
				Entitled:      true,
				State:         StateActive,
				ValidUntil:    record.PaidUntil,
				Reason:        ReasonActive,
				DaysRemaining: days,
				Message:       fmt.Sprintf("Subscription active, renews in %s.", pluralDays(days)),
			}
		}
		// Paid period lapsed: fall through to the grace check.
	}

	if record.GraceUntil != nil && !now.After(*record.GraceUntil) {
		days := daysRemainingAt(now, *record.GraceUntil)
		return Verdict{
			Addon:         addon,
			Entitled:      true,
			State:         StateGrace,
			ValidUntil:    record.GraceUntil,
			Reason:        ReasonGrace,
			DaysRemaining: days,
			Message:       fmt.Sprintf("Payment overdue. Access ends in %s unless renewed.", pluralDays(days)),
		}
	}

	reason := ReasonExpired
	if record.BillingStatus == BillingCancelled {
		reason = ReasonCancelled
	}
	return Verdict{
		Addon:   addon,
		State:   StateExpired,
		Reason:  reason,
		Message: "Your subscription has expired. Renew to restore access.",
	}
}

func notInstalledVerdict(addon Code) Verdict {
	return Verdict{
		Addon:   addon,
		State:   StateNotInstalled,
		Reason:  ReasonNotInstalled,
		Message: "This add-on is not installed for your account.",
	}
}

// moreFavorable ranks verdicts for family folding: entitled beats denied,
// then longer-lived states beat shorter-lived ones.
func moreFavorable(a, b Verdict) bool {
	if a.Entitled != b.Entitled {
		return a.Entitled
	}
	rankA, rankB := stateRank(a.State), stateRank(b.State)
	if rankA != rankB {
		return rankA > rankB
	}
	// A nil ValidUntil on an entitled verdict means no deadline at all.
	if a.Entitled && (a.ValidUntil == nil) != (b.ValidUntil == nil) {
		return a.ValidUntil == nil
	}
	return a.DaysRemaining > b.DaysRemaining
}

func stateRank(s State) int {
	switch s {
	case StateActive:
		return 5
	case StateTrial:
		return 4
	case StateGrace:
		return 3
	case StateExpired:
		return 2
	case StateCancelled:
		return 1
	default: // not_installed
		return 0
	}
}

func pluralDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
