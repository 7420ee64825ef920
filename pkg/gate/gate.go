package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/workforcekit/entitlement/pkg/entitlement"
)

// GracePolicy controls how the gate treats a tenant whose verdict is grace.
type GracePolicy string

const (
	// GraceAllowAll lets grace-state tenants through unconditionally.
	GraceAllowAll GracePolicy = "allow_all"
	// GraceReadOnly allows read methods during grace and denies writes,
	// prompting the tenant to renew before making changes.
	GraceReadOnly GracePolicy = "read_only"
)

// Outcome is the gate's tri-state decision.
type Outcome string

const (
	OutcomeAllow         Outcome = "allow"
	OutcomeAllowReadOnly Outcome = "allow_read_only"
	OutcomeDeny          Outcome = "deny"
)

// Request describes one access check.
type Request struct {
	TenantID  uuid.UUID
	Addon     entitlement.Code
	Method    string // HTTP method; GET/HEAD count as reads
	Policy    GracePolicy
	ExtraDeps []string // caller-supplied prerequisites merged with the static graph
}

// Decision is the gate's answer for a single request.
type Decision struct {
	Outcome        Outcome
	Code           entitlement.ReasonCode // set on deny
	Message        string
	Dependency     entitlement.Code // set when a prerequisite caused the denial
	ReadOnlyReason string           // set on allow_read_only
}

// Allowed reports whether the request may proceed at all.
func (d Decision) Allowed() bool {
	return d.Outcome != OutcomeDeny
}

// ReadOnlyFallback reports whether a fully lapsed tenant still has
// pre-existing data in the add-on's domain and should keep read access to
// it. The returned reason is surfaced to the caller.
type ReadOnlyFallback func(ctx context.Context, tenantID uuid.UUID, addon entitlement.Code) (reason string, ok bool)

// Gate combines entitlement, dependencies, and request method into a single
// per-request access decision. It performs at most two store reads and no
// writes, so it can run fully in parallel across requests.
type Gate struct {
	resolver *entitlement.Resolver
	checker  *entitlement.Checker
	fallback ReadOnlyFallback
	logger   *slog.Logger
}

// Option configures optional Gate settings.
type Option func(*Gate)

// WithReadOnlyFallback installs the domain's read-only fallback hook.
func WithReadOnlyFallback(fallback ReadOnlyFallback) Option {
	return func(g *Gate) { g.fallback = fallback }
}

// WithLogger sets the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Gate. The resolver is required; a nil checker disables
// dependency checking (every check is trivially satisfied).
func New(resolver *entitlement.Resolver, checker *entitlement.Checker, opts ...Option) *Gate {
	if resolver == nil {
		panic("gate: Resolver is required")
	}

	g := &Gate{
		resolver: resolver,
		checker:  checker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check produces the access decision for one request.
//
// Dependency failure is evaluated before the add-on's own grace or read-only
// leniency: a missing prerequisite is a harder failure that must not be
// softened by the dependent module's relaxed read policy. The error return
// is reserved for infrastructure failure; the accompanying decision still
// fails closed so callers that ignore the error deny access.
func (g *Gate) Check(ctx context.Context, req Request) (Decision, error) {
	verdict, err := g.resolver.Resolve(ctx, req.TenantID, req.Addon)
	if err != nil {
		return denyInfra(), err
	}

	if g.checker != nil {
		deps, err := g.checker.Check(ctx, req.TenantID, req.Addon, req.ExtraDeps...)
		if err != nil {
			return denyInfra(), err
		}
		if !deps.Satisfied {
			return denyDependency(deps), nil
		}
	}

	if verdict.State == entitlement.StateGrace {
		if req.Policy == GraceReadOnly && !isReadMethod(req.Method) {
			return Decision{
				Outcome: OutcomeDeny,
				Code:    entitlement.ReasonExpired,
				Message: "Your payment is overdue. Renew to make changes; existing data stays available until the grace period ends.",
			}, nil
		}
		return Decision{Outcome: OutcomeAllow}, nil
	}

	if !verdict.Entitled && g.fallback != nil {
		if reason, ok := g.fallback(ctx, req.TenantID, req.Addon); ok {
			if isReadMethod(req.Method) {
				return Decision{Outcome: OutcomeAllowReadOnly, ReadOnlyReason: reason}, nil
			}
			return Decision{
				Outcome: OutcomeDeny,
				Code:    entitlement.ReasonExpired,
				Message: reason,
			}, nil
		}
	}

	if verdict.Entitled {
		return Decision{Outcome: OutcomeAllow}, nil
	}

	return Decision{
		Outcome: OutcomeDeny,
		Code:    denyCode(verdict),
		Message: verdict.Message,
	}, nil
}

func denyDependency(deps entitlement.DependencyResult) Decision {
	code := entitlement.ReasonDependencyExpired
	if deps.MissingState == entitlement.StateNotInstalled {
		code = entitlement.ReasonDependencyMissing
	}
	return Decision{
		Outcome:    OutcomeDeny,
		Code:       code,
		Dependency: deps.Missing,
		Message:    fmt.Sprintf("This add-on requires %q, which is %s for your account.", deps.Missing, dependencyStateLabel(deps.MissingState)),
	}
}

// denyInfra is the fail-closed decision paired with an infrastructure error.
func denyInfra() Decision {
	return Decision{
		Outcome: OutcomeDeny,
		Code:    entitlement.ReasonNotInstalled,
		Message: "Access could not be verified.",
	}
}

// denyCode maps a not-entitled verdict to its closed deny reason.
func denyCode(v entitlement.Verdict) entitlement.ReasonCode {
	switch v.Reason {
	case entitlement.ReasonNotInstalled, entitlement.ReasonTrialExpired, entitlement.ReasonCancelled:
		return v.Reason
	default:
		return entitlement.ReasonExpired
	}
}

func dependencyStateLabel(s entitlement.State) string {
	switch s {
	case entitlement.StateNotInstalled:
		return "not installed"
	case entitlement.StateCancelled:
		return "cancelled"
	default:
		return "expired"
	}
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
