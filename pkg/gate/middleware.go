package gate

import (
	"encoding/json"
	"net/http"

	"github.com/workforcekit/entitlement/pkg/entitlement"
	"github.com/workforcekit/entitlement/pkg/tenant"
)

// DenyPayload is the stable JSON body sent with every entitlement denial.
// Route handlers and the frontend depend on this shape; extend it, never
// rearrange it.
type DenyPayload struct {
	Error      string                 `json:"error"`
	Code       entitlement.ReasonCode `json:"code"`
	Addon      string                 `json:"addon"`
	Dependency string                 `json:"dependency,omitempty"`
	Message    string                 `json:"message"`
	UpgradeURL string                 `json:"upgradeUrl"`
}

const accessDeniedError = "ADDON_ACCESS_DENIED"

// Advisory headers set on read-only passes so the UI can surface a banner.
const (
	HeaderAccessMode   = "X-Addon-Access"
	HeaderAccessReason = "X-Addon-Access-Reason"
	accessModeReadOnly = "read-only"
)

type middlewareConfig struct {
	policy     GracePolicy
	extraDeps  []string
	upgradeURL string
}

// MiddlewareOption configures the access-gate middleware.
type MiddlewareOption func(*middlewareConfig)

// WithGracePolicy sets the grace-period policy (default GraceReadOnly).
func WithGracePolicy(policy GracePolicy) MiddlewareOption {
	return func(c *middlewareConfig) { c.policy = policy }
}

// WithExtraDeps adds caller-supplied prerequisites to the static graph.
func WithExtraDeps(deps ...string) MiddlewareOption {
	return func(c *middlewareConfig) { c.extraDeps = deps }
}

// WithUpgradeURL sets the upgrade link embedded in deny payloads.
func WithUpgradeURL(url string) MiddlewareOption {
	return func(c *middlewareConfig) { c.upgradeURL = url }
}

// Middleware guards a route subtree behind the gate for one add-on.
// Responses: 401 when no tenant is in the request context, 403 with the
// stable deny payload for entitlement/dependency denials, 500 only for
// infrastructure failure. Read-only passes go through with advisory headers.
func (g *Gate) Middleware(addon entitlement.Code, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		policy:     GraceReadOnly,
		upgradeURL: "/settings/billing/addons",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := tenant.IDFromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":   "UNAUTHORIZED",
					"message": "Tenant context is missing.",
				})
				return
			}

			decision, err := g.Check(r.Context(), Request{
				TenantID:  tenantID,
				Addon:     addon,
				Method:    r.Method,
				Policy:    cfg.policy,
				ExtraDeps: cfg.extraDeps,
			})
			if err != nil {
				// Infrastructure failure: fail closed, but do not mask a
				// genuine outage behind a misleading "not installed".
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "INTERNAL_ERROR",
					"message": "Access could not be verified. Please try again.",
				})
				return
			}

			switch decision.Outcome {
			case OutcomeAllow:
				next.ServeHTTP(w, r)
			case OutcomeAllowReadOnly:
				w.Header().Set(HeaderAccessMode, accessModeReadOnly)
				if decision.ReadOnlyReason != "" {
					w.Header().Set(HeaderAccessReason, decision.ReadOnlyReason)
				}
				next.ServeHTTP(w, r)
			default:
				payload := DenyPayload{
					Error:      accessDeniedError,
					Code:       decision.Code,
					Addon:      addon.String(),
					Message:    decision.Message,
					UpgradeURL: cfg.upgradeURL,
				}
				if !decision.Dependency.IsZero() {
					payload.Dependency = decision.Dependency.String()
				}
				writeJSON(w, http.StatusForbidden, payload)
			}
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
