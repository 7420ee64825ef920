package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implements RecordStore on a pgx connection pool over the
// addon_subscriptions table (see the shipped goose migration).
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Postgres-backed RecordStore.
// Panics if pool is nil to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) RecordStore {
	if pool == nil {
		panic("entitlement: pgx pool is required")
	}
	return &pgStore{pool: pool}
}

const recordColumns = `tenant_id, addon_base, addon_variant, install_status, billing_status,
	trial_ends_at, paid_until, grace_until, created_at, updated_at`

func (s *pgStore) Get(ctx context.Context, tenantID uuid.UUID, addon Code) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM addon_subscriptions
		WHERE tenant_id = $1 AND addon_base = $2 AND addon_variant = $3`,
		tenantID, addon.Base, addon.Variant)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return record, nil
}

func (s *pgStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM addon_subscriptions
		WHERE tenant_id = $1
		ORDER BY addon_base, addon_variant`,
		tenantID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *pgStore) ListInstalled(ctx context.Context) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM addon_subscriptions
		WHERE install_status = $1
		ORDER BY tenant_id, addon_base, addon_variant`,
		InstallActive)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (s *pgStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}
	if record.Addon.IsZero() {
		return ErrMissingAddonCode
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO addon_subscriptions (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, addon_base, addon_variant) DO UPDATE SET
			install_status = EXCLUDED.install_status,
			billing_status = EXCLUDED.billing_status,
			trial_ends_at  = EXCLUDED.trial_ends_at,
			paid_until     = EXCLUDED.paid_until,
			grace_until    = EXCLUDED.grace_until,
			updated_at     = EXCLUDED.updated_at`,
		record.TenantID, record.Addon.Base, record.Addon.Variant,
		record.InstallStatus, record.BillingStatus,
		record.TrialEndsAt, record.PaidUntil, record.GraceUntil,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// AdvanceBillingStatus is a compare-and-set on billing_status so concurrent
// sweeps from multiple replicas stay idempotent: whoever matches the expected
// status wins, everyone else sees zero rows affected.
func (s *pgStore) AdvanceBillingStatus(ctx context.Context, tenantID uuid.UUID, addon Code, from, to BillingStatus, graceUntil *time.Time, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE addon_subscriptions
		SET billing_status = $1,
		    grace_until    = COALESCE($2, grace_until),
		    updated_at     = $3
		WHERE tenant_id = $4 AND addon_base = $5 AND addon_variant = $6
		  AND billing_status = $7`,
		to, graceUntil, now, tenantID, addon.Base, addon.Variant, from)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var record Record
	if err := row.Scan(
		&record.TenantID, &record.Addon.Base, &record.Addon.Variant,
		&record.InstallStatus, &record.BillingStatus,
		&record.TrialEndsAt, &record.PaidUntil, &record.GraceUntil,
		&record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
