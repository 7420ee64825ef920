package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ResolveAll returns one verdict per logical add-on for a tenant, keyed by
// canonical base code. Country variants of a family fold into a single row,
// the most favorable verdict winning, so dashboards show one entry per
// module regardless of which variant record exists.
//
// This is the listing/reporting path; the live access gate never uses it.
func (r *Resolver) ResolveAll(ctx context.Context, tenantID uuid.UUID) (map[string]Verdict, error) {
	return r.ResolveAllAt(ctx, tenantID, r.clock())
}

// ResolveAllAt is ResolveAll evaluated against an explicit point in time.
func (r *Resolver) ResolveAllAt(ctx context.Context, tenantID uuid.UUID, now time.Time) (map[string]Verdict, error) {
	records, err := r.store.ListByTenant(ctx, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "entitlement bulk lookup failed",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()))
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	result := make(map[string]Verdict, len(records))
	for _, record := range records {
		verdict := verdictAt(record, record.Addon, now)
		if existing, ok := result[record.Addon.Base]; ok && !moreFavorable(verdict, existing) {
			continue
		}
		// The folded row is reported under the generic code.
		verdict.Addon = NewCode(record.Addon.Base)
		result[record.Addon.Base] = verdict
	}
	return result, nil
}
