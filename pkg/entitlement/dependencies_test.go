package entitlement_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforcekit/entitlement/pkg/entitlement"
)

func newChecker(t *testing.T, store entitlement.RecordStore, graph entitlement.Graph) *entitlement.Checker {
	t.Helper()
	resolver := entitlement.NewResolver(store, entitlement.WithClock(fixedClock(testNow)))
	checker, err := entitlement.NewChecker(context.Background(), entitlement.NewMemGraphSource(graph), resolver)
	require.NoError(t, err)
	return checker
}

func TestChecker_NoPrerequisites(t *testing.T) {
	t.Parallel()

	checker := newChecker(t, entitlement.NewMemoryStore(), entitlement.Graph{
		"payroll": {"hr-foundation"},
	})

	result, err := checker.Check(context.Background(), uuid.New(), entitlement.NewCode("hr-foundation"))
	require.NoError(t, err)
	assert.True(t, result.Satisfied)
}

func TestChecker_SatisfiedByGenericRecord(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("hr-foundation"),
		BillingStatus: entitlement.BillingActive,
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)
	assert.True(t, result.Satisfied)
}

func TestChecker_SatisfiedByAnyVariant(t *testing.T) {
	t.Parallel()

	// Scenario: the UAE edition of the prerequisite is expired, but the Indian
	// edition is live. Any entitled variant satisfies the family.
	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewVariant("hr-foundation", "ae"),
		BillingStatus: entitlement.BillingExpired,
	})
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewVariant("hr-foundation", "in"),
		BillingStatus: entitlement.BillingActive,
		PaidUntil:     timePtr(testNow.Add(30 * 24 * time.Hour)),
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)
	assert.True(t, result.Satisfied)
}

func TestChecker_OrAcrossPrerequisites(t *testing.T) {
	t.Parallel()

	// Either the foundation module or the full suite unlocks payroll.
	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("hr-suite"),
		BillingStatus: entitlement.BillingActive,
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation", "hr-suite"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)
	assert.True(t, result.Satisfied)
}

func TestChecker_ReportsFirstPrerequisite(t *testing.T) {
	t.Parallel()

	// None satisfied: the diagnostic names the first configured prerequisite,
	// with its state distinguishing "expired" from "never installed".
	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("hr-foundation"),
		BillingStatus: entitlement.BillingExpired,
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation", "hr-suite"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)

	assert.False(t, result.Satisfied)
	assert.Equal(t, "hr-foundation", result.Missing.String())
	assert.Equal(t, entitlement.StateExpired, result.MissingState)
}

func TestChecker_MissingNeverInstalled(t *testing.T) {
	t.Parallel()

	checker := newChecker(t, entitlement.NewMemoryStore(), entitlement.Graph{"payroll": {"hr-foundation"}})
	result, err := checker.Check(context.Background(), uuid.New(), entitlement.NewCode("payroll"))
	require.NoError(t, err)

	assert.False(t, result.Satisfied)
	assert.Equal(t, entitlement.StateNotInstalled, result.MissingState)
}

func TestChecker_ExtraDepsMerged(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("attendance"),
		BillingStatus: entitlement.BillingActive,
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"), "attendance")
	require.NoError(t, err)
	assert.True(t, result.Satisfied)
}

func TestChecker_DependencyDoesNotSubstituteForOwnEntitlement(t *testing.T) {
	t.Parallel()

	// A satisfied prerequisite says nothing about the dependent add-on itself.
	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seedRecord(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("hr-foundation"),
		BillingStatus: entitlement.BillingActive,
	})

	checker := newChecker(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	result, err := checker.Check(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)
	assert.True(t, result.Satisfied)

	resolver := entitlement.NewResolver(store, entitlement.WithClock(fixedClock(testNow)))
	verdict, err := resolver.Resolve(context.Background(), tenantID, entitlement.NewCode("payroll"))
	require.NoError(t, err)
	assert.False(t, verdict.Entitled)
}

func TestChecker_PropagatesStoreFailure(t *testing.T) {
	t.Parallel()

	resolver := entitlement.NewResolver(failingStore{}, entitlement.WithClock(fixedClock(testNow)))
	checker, err := entitlement.NewChecker(context.Background(),
		entitlement.NewMemGraphSource(entitlement.Graph{"payroll": {"hr-foundation"}}), resolver)
	require.NoError(t, err)

	result, err := checker.Check(context.Background(), uuid.New(), entitlement.NewCode("payroll"))
	require.ErrorIs(t, err, entitlement.ErrStoreUnavailable)
	assert.False(t, result.Satisfied)
}

func TestYAMLGraphSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dependencies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("payroll:\n  - hr-foundation\n  - hr-suite\nattendance:\n  - hr-foundation\n"), 0o600))

	graph, err := entitlement.NewYAMLGraphSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hr-foundation", "hr-suite"}, graph["payroll"])
	assert.Equal(t, []string{"hr-foundation"}, graph["attendance"])
}

func TestNewChecker_LoadFailure(t *testing.T) {
	t.Parallel()

	resolver := entitlement.NewResolver(entitlement.NewMemoryStore())
	_, err := entitlement.NewChecker(context.Background(),
		entitlement.NewYAMLGraphSource("/nonexistent/dependencies.yaml"), resolver)
	require.ErrorIs(t, err, entitlement.ErrFailedToLoadGraph)
}
