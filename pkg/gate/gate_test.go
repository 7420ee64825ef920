package gate_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforcekit/entitlement/pkg/entitlement"
	"github.com/workforcekit/entitlement/pkg/gate"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func seed(t *testing.T, store entitlement.RecordStore, record *entitlement.Record) {
	t.Helper()
	if record.InstallStatus == "" {
		record.InstallStatus = entitlement.InstallActive
	}
	require.NoError(t, store.Save(context.Background(), record))
}

func newGate(t *testing.T, store entitlement.RecordStore, graph entitlement.Graph, opts ...gate.Option) *gate.Gate {
	t.Helper()
	resolver := entitlement.NewResolver(store, entitlement.WithClock(func() time.Time { return testNow }))
	var checker *entitlement.Checker
	if graph != nil {
		var err error
		checker, err = entitlement.NewChecker(context.Background(), entitlement.NewMemGraphSource(graph), resolver)
		require.NoError(t, err)
	}
	return gate.New(resolver, checker, opts...)
}

func TestGate_AllowActive(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingActive,
	})

	g := newGate(t, store, nil)
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodPost,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeAllow, decision.Outcome)
	assert.True(t, decision.Allowed())
}

func TestGate_DenyNotInstalled(t *testing.T) {
	t.Parallel()

	g := newGate(t, entitlement.NewMemoryStore(), nil)
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: uuid.New(),
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeDeny, decision.Outcome)
	assert.Equal(t, entitlement.ReasonNotInstalled, decision.Code)
}

func TestGate_GraceReadWriteAsymmetry(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingGracePeriod,
		PaidUntil:     timePtr(testNow.Add(-24 * time.Hour)),
		GraceUntil:    timePtr(testNow.Add(48 * time.Hour)),
	})
	g := newGate(t, store, nil)

	tests := []struct {
		method string
		want   gate.Outcome
	}{
		{method: http.MethodGet, want: gate.OutcomeAllow},
		{method: http.MethodHead, want: gate.OutcomeAllow},
		{method: http.MethodPost, want: gate.OutcomeDeny},
		{method: http.MethodPut, want: gate.OutcomeDeny},
		{method: http.MethodDelete, want: gate.OutcomeDeny},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()

			decision, err := g.Check(context.Background(), gate.Request{
				TenantID: tenantID,
				Addon:    entitlement.NewCode("payroll"),
				Method:   tt.method,
				Policy:   gate.GraceReadOnly,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Outcome)
			if tt.want == gate.OutcomeDeny {
				assert.Equal(t, entitlement.ReasonExpired, decision.Code)
			}
		})
	}
}

func TestGate_GraceAllowAllPolicy(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingGracePeriod,
		GraceUntil:    timePtr(testNow.Add(48 * time.Hour)),
	})

	g := newGate(t, store, nil)
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodPost,
		Policy:   gate.GraceAllowAll,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeAllow, decision.Outcome)
}

func TestGate_DependencyDeniedBeforeGrace(t *testing.T) {
	t.Parallel()

	// Even a read during the add-on's own grace period is blocked when a
	// prerequisite is missing entirely.
	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingGracePeriod,
		GraceUntil:    timePtr(testNow.Add(48 * time.Hour)),
	})

	g := newGate(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
		Policy:   gate.GraceReadOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, gate.OutcomeDeny, decision.Outcome)
	assert.Equal(t, entitlement.ReasonDependencyMissing, decision.Code)
	assert.Equal(t, "hr-foundation", decision.Dependency.String())
}

func TestGate_DependencyExpiredCode(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingActive,
	})
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("hr-foundation"),
		BillingStatus: entitlement.BillingExpired,
	})

	g := newGate(t, store, entitlement.Graph{"payroll": {"hr-foundation"}})
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
	})
	require.NoError(t, err)

	assert.Equal(t, gate.OutcomeDeny, decision.Outcome)
	assert.Equal(t, entitlement.ReasonDependencyExpired, decision.Code)
}

func TestGate_ReadOnlyFallback(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingExpired,
	})

	fallback := func(ctx context.Context, id uuid.UUID, addon entitlement.Code) (string, bool) {
		return "Subscription expired; existing records are read-only.", true
	}
	g := newGate(t, store, nil, gate.WithReadOnlyFallback(fallback))

	read, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeAllowReadOnly, read.Outcome)
	assert.NotEmpty(t, read.ReadOnlyReason)

	write, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodPost,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeDeny, write.Outcome)
	assert.Equal(t, entitlement.ReasonExpired, write.Code)
}

func TestGate_FallbackSkippedWithoutData(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingExpired,
	})

	fallback := func(ctx context.Context, id uuid.UUID, addon entitlement.Code) (string, bool) {
		return "", false
	}
	g := newGate(t, store, nil, gate.WithReadOnlyFallback(fallback))

	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeDeny, decision.Outcome)
	assert.Equal(t, entitlement.ReasonExpired, decision.Code)
}

func TestGate_TrialExpiredDenyCode(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	tenantID := uuid.New()
	seed(t, store, &entitlement.Record{
		TenantID:      tenantID,
		Addon:         entitlement.NewCode("payroll"),
		BillingStatus: entitlement.BillingTrialing,
		TrialEndsAt:   timePtr(testNow.Add(-time.Hour)),
	})

	g := newGate(t, store, nil)
	decision, err := g.Check(context.Background(), gate.Request{
		TenantID: tenantID,
		Addon:    entitlement.NewCode("payroll"),
		Method:   http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, gate.OutcomeDeny, decision.Outcome)
	assert.Equal(t, entitlement.ReasonTrialExpired, decision.Code)
}
