package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforcekit/entitlement/pkg/entitlement"
)

// failingStore simulates an unreachable backend.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) Get(ctx context.Context, tenantID uuid.UUID, addon entitlement.Code) (*entitlement.Record, error) {
	return nil, errStoreDown
}

func (failingStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*entitlement.Record, error) {
	return nil, errStoreDown
}

func (failingStore) ListInstalled(ctx context.Context) ([]*entitlement.Record, error) {
	return nil, errStoreDown
}

func (failingStore) Save(ctx context.Context, record *entitlement.Record) error {
	return errStoreDown
}

func (failingStore) AdvanceBillingStatus(ctx context.Context, tenantID uuid.UUID, addon entitlement.Code, from, to entitlement.BillingStatus, graceUntil *time.Time, now time.Time) (bool, error) {
	return false, errStoreDown
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New(), entitlement.NewCode("payroll"))
	require.ErrorIs(t, err, entitlement.ErrRecordNotFound)
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	record := &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewVariant("payroll", "in"),
		InstallStatus: entitlement.InstallActive,
		BillingStatus: entitlement.BillingActive,
		PaidUntil:     timePtr(testNow.Add(24 * time.Hour)),
	}
	require.NoError(t, store.Save(context.Background(), record))

	got, err := store.Get(context.Background(), tenantID, entitlement.NewVariant("payroll", "in"))
	require.NoError(t, err)
	assert.Equal(t, record.BillingStatus, got.BillingStatus)
	require.NotNil(t, got.PaidUntil)

	// Mutating the returned copy must not affect the stored record.
	got.BillingStatus = entitlement.BillingCancelled
	again, err := store.Get(context.Background(), tenantID, entitlement.NewVariant("payroll", "in"))
	require.NoError(t, err)
	assert.Equal(t, entitlement.BillingActive, again.BillingStatus)
}

func TestMemoryStore_SaveValidates(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	err := store.Save(context.Background(), nil)
	require.ErrorIs(t, err, entitlement.ErrInvalidRecord)

	err = store.Save(context.Background(), &entitlement.Record{Addon: entitlement.NewCode("payroll")})
	require.ErrorIs(t, err, entitlement.ErrMissingTenantID)

	err = store.Save(context.Background(), &entitlement.Record{TenantID: uuid.New()})
	require.ErrorIs(t, err, entitlement.ErrMissingAddonCode)
}

func TestMemoryStore_ListByTenant(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	otherID := uuid.New()

	for _, code := range []entitlement.Code{
		entitlement.NewCode("payroll"),
		entitlement.NewCode("hr-foundation"),
	} {
		require.NoError(t, store.Save(context.Background(), &entitlement.Record{
			TenantID:      tenantID,
			Addon:         code,
			InstallStatus: entitlement.InstallActive,
			BillingStatus: entitlement.BillingActive,
		}))
	}
	require.NoError(t, store.Save(context.Background(), &entitlement.Record{
		TenantID:      otherID,
		Addon:         entitlement.NewCode("payroll"),
		InstallStatus: entitlement.InstallActive,
		BillingStatus: entitlement.BillingActive,
	}))

	records, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Sorted by add-on code for deterministic iteration.
	assert.Equal(t, "hr-foundation", records[0].Addon.String())
	assert.Equal(t, "payroll", records[1].Addon.String())
}

func TestMemoryStore_AdvanceBillingStatus(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	addon := entitlement.NewCode("payroll")
	require.NoError(t, store.Save(context.Background(), &entitlement.Record{
		TenantID:      tenantID,
		Addon:         addon,
		InstallStatus: entitlement.InstallActive,
		BillingStatus: entitlement.BillingActive,
		PaidUntil:     timePtr(testNow.Add(-24 * time.Hour)),
	}))

	graceUntil := testNow.Add(48 * time.Hour)
	applied, err := store.AdvanceBillingStatus(context.Background(), tenantID, addon,
		entitlement.BillingActive, entitlement.BillingGracePeriod, &graceUntil, testNow)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.Get(context.Background(), tenantID, addon)
	require.NoError(t, err)
	assert.Equal(t, entitlement.BillingGracePeriod, got.BillingStatus)
	require.NotNil(t, got.GraceUntil)
	assert.Equal(t, graceUntil, *got.GraceUntil)

	// A second replica attempting the same transition loses the race.
	applied, err = store.AdvanceBillingStatus(context.Background(), tenantID, addon,
		entitlement.BillingActive, entitlement.BillingGracePeriod, &graceUntil, testNow)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMemoryStore_AdvanceKeepsExistingGrace(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	addon := entitlement.NewCode("payroll")
	existing := testNow.Add(24 * time.Hour)
	require.NoError(t, store.Save(context.Background(), &entitlement.Record{
		TenantID:      tenantID,
		Addon:         addon,
		InstallStatus: entitlement.InstallActive,
		BillingStatus: entitlement.BillingGracePeriod,
		GraceUntil:    &existing,
	}))

	// Passing nil grace keeps the recorded window untouched.
	applied, err := store.AdvanceBillingStatus(context.Background(), tenantID, addon,
		entitlement.BillingGracePeriod, entitlement.BillingExpired, nil, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := store.Get(context.Background(), tenantID, addon)
	require.NoError(t, err)
	assert.Equal(t, entitlement.BillingExpired, got.BillingStatus)
	require.NotNil(t, got.GraceUntil)
	assert.Equal(t, existing, *got.GraceUntil)
}
