package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordStore defines the persistence interface for subscription records.
// (TenantID, Addon) is the logical primary key: a tenant holds at most one
// record per add-on code, though it may hold several variants of one family.
type RecordStore interface {
	// Get retrieves the record for the exact (tenant, addon) pair.
	// Returns ErrRecordNotFound if no record exists.
	Get(ctx context.Context, tenantID uuid.UUID, addon Code) (*Record, error)

	// ListByTenant returns all records for a tenant ordered by addon code.
	// Used for variant-fallback lookups and the dashboard bulk query.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Record, error)

	// ListInstalled returns every record with InstallStatus active, across
	// all tenants. Used by the reconciliation sweep.
	ListInstalled(ctx context.Context) ([]*Record, error)

	// Save creates or updates a record. The engine itself never calls this
	// on the request path; it exists for the billing collaborator and tests.
	Save(ctx context.Context, record *Record) error

	// AdvanceBillingStatus moves BillingStatus from an expected current value
	// to the next lifecycle value, optionally recording a grace deadline.
	// The write is conditional on the current status still matching from,
	// making concurrent sweeps from multiple replicas safe: the first writer
	// wins and later attempts report applied=false without error.
	AdvanceBillingStatus(ctx context.Context, tenantID uuid.UUID, addon Code, from, to BillingStatus, graceUntil *time.Time, now time.Time) (applied bool, err error)
}
