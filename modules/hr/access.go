package hr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/workforcekit/entitlement/pkg/entitlement"
	"github.com/workforcekit/entitlement/pkg/gate"
	"github.com/workforcekit/entitlement/pkg/quota"
)

// Add-on base codes of the HR domain. Payroll ships in country variants
// (payroll.in, payroll.sa, ...); any entitled hr-foundation variant
// satisfies its prerequisite.
const (
	AddonFoundation = "hr-foundation"
	AddonSuite      = "hr-suite"
	AddonPayroll    = "payroll"
)

// Access is the composite capability view for one tenant across the HR
// domain, consumed by route handlers and the UI shell.
type Access struct {
	HasFoundationAccess bool  `json:"hasFoundationAccess"`
	HasSuiteAccess      bool  `json:"hasSuiteAccess"`
	HasPaidModuleAccess bool  `json:"hasPaidModuleAccess"`
	QuotaLimit          int64 `json:"quotaLimit"` // -1 = unlimited

	FoundationInGrace bool `json:"foundationInGrace"`
	SuiteInGrace      bool `json:"suiteInGrace"`
	PayrollInGrace    bool `json:"payrollInGrace"`

	ReadOnly       bool   `json:"readOnly"`
	ReadOnlyReason string `json:"readOnlyReason,omitempty"`
}

// TierResolver returns the purchased payroll tier for a tenant. Owned by the
// billing collaborator; an empty tier means no cap.
type TierResolver func(ctx context.Context, tenantID uuid.UUID) (string, error)

// DataChecker reports whether the tenant has pre-existing HR data (any
// employee rows), which is what earns a lapsed tenant read-only access.
type DataChecker func(ctx context.Context, tenantID uuid.UUID) (bool, error)

// Service computes composite HR access from the entitlement resolver and
// the quota enforcer.
type Service struct {
	resolver *entitlement.Resolver
	enforcer *quota.Enforcer
	tiers    TierResolver
	hasData  DataChecker
	logger   *slog.Logger
}

// Option configures optional Service settings.
type Option func(*Service)

// WithTierResolver injects the purchased-tier lookup.
func WithTierResolver(tiers TierResolver) Option {
	return func(s *Service) { s.tiers = tiers }
}

// WithDataChecker injects the pre-existing-data probe behind the read-only
// fallback.
func WithDataChecker(hasData DataChecker) Option {
	return func(s *Service) { s.hasData = hasData }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates the HR access service. Resolver and enforcer are
// required; panics if either is nil to fail fast during initialization.
func NewService(resolver *entitlement.Resolver, enforcer *quota.Enforcer, opts ...Option) *Service {
	if resolver == nil {
		panic("hr: Resolver is required")
	}
	if enforcer == nil {
		panic("hr: Enforcer is required")
	}

	s := &Service{
		resolver: resolver,
		enforcer: enforcer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Access resolves the composite capability view for a tenant. Each family is
// resolved fresh; nothing here is cached across requests.
func (s *Service) Access(ctx context.Context, tenantID uuid.UUID) (Access, error) {
	foundation, err := s.resolver.ResolveFamily(ctx, tenantID, AddonFoundation)
	if err != nil {
		return Access{}, err
	}
	suite, err := s.resolver.ResolveFamily(ctx, tenantID, AddonSuite)
	if err != nil {
		return Access{}, err
	}
	payroll, err := s.resolver.ResolveFamily(ctx, tenantID, AddonPayroll)
	if err != nil {
		return Access{}, err
	}

	access := Access{
		HasFoundationAccess: foundation.Entitled || suite.Entitled,
		HasSuiteAccess:      suite.Entitled,
		HasPaidModuleAccess: payroll.Entitled,
		FoundationInGrace:   foundation.State == entitlement.StateGrace,
		SuiteInGrace:        suite.State == entitlement.StateGrace,
		PayrollInGrace:      payroll.State == entitlement.StateGrace,
	}

	access.QuotaLimit = s.enforcer.Limit(ctx, s.quotaInput(ctx, tenantID, payroll))

	if !access.HasFoundationAccess && !access.HasPaidModuleAccess {
		if reason, ok := s.readOnlyReason(ctx, tenantID); ok {
			access.ReadOnly = true
			access.ReadOnlyReason = reason
		}
	}

	return access, nil
}

// QuotaDecision evaluates the tenant's employee count against the effective
// ceiling for the current payroll state.
func (s *Service) QuotaDecision(ctx context.Context, tenantID uuid.UUID) (quota.Decision, error) {
	payroll, err := s.resolver.ResolveFamily(ctx, tenantID, AddonPayroll)
	if err != nil {
		return quota.Decision{}, err
	}
	return s.enforcer.Check(ctx, tenantID, s.quotaInput(ctx, tenantID, payroll))
}

// ReadOnlyFallback adapts the data probe to the gate's fallback hook so
// fully lapsed tenants keep read access to their existing HR records.
func (s *Service) ReadOnlyFallback() gate.ReadOnlyFallback {
	return func(ctx context.Context, tenantID uuid.UUID, addon entitlement.Code) (string, bool) {
		reason, ok := s.readOnlyReason(ctx, tenantID)
		return reason, ok
	}
}

func (s *Service) quotaInput(ctx context.Context, tenantID uuid.UUID, payroll entitlement.Verdict) quota.CheckInput {
	if !payroll.Entitled {
		// Only the foundation module carries no employee ceiling.
		return quota.CheckInput{DependencyOnly: true}
	}
	if payroll.State == entitlement.StateTrial {
		return quota.CheckInput{Trialing: true}
	}

	in := quota.CheckInput{}
	if s.tiers != nil {
		tierID, err := s.tiers(ctx, tenantID)
		if err != nil {
			// Missing tier data must not lock a paying tenant out; warn
			// and fall back to unconstrained.
			s.logger.WarnContext(ctx, "tier lookup failed, treating as unlimited",
				slog.String("tenant_id", tenantID.String()),
				slog.String("error", err.Error()))
			return in
		}
		in.TierID = tierID
	}
	return in
}

func (s *Service) readOnlyReason(ctx context.Context, tenantID uuid.UUID) (string, bool) {
	if s.hasData == nil {
		return "", false
	}
	ok, err := s.hasData(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "read-only data probe failed",
				slog.String("tenant_id", tenantID.String()),
				slog.String("error", err.Error()))
		}
		return "", false
	}
	if !ok {
		return "", false
	}
	return "Your HR subscription has expired. Existing records are available read-only.", true
}
