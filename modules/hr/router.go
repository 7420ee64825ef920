package hr

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workforcekit/entitlement/pkg/entitlement"
	"github.com/workforcekit/entitlement/pkg/gate"
	"github.com/workforcekit/entitlement/pkg/tenant"
)

// RouterOptions carries the CRUD handlers the surrounding application mounts
// under the HR module. Each is optional and mounted only if provided; the
// router's job is the access wiring, not the handlers themselves.
type RouterOptions struct {
	Employees http.Handler
	Payroll   http.Handler

	// UpgradeURL overrides the upgrade link in deny payloads.
	UpgradeURL string
}

// Router wires the HR module routes behind the access gate: employee routes
// require the foundation module, payroll routes require the payroll module
// (whose hr-foundation prerequisite the dependency graph enforces), and
// employee writes additionally pass quota enforcement.
//
//	r.Mount("/hr", hr.Router(accessSvc, g, hr.RouterOptions{
//	    Employees: employeeHandler,
//	    Payroll:   payrollHandler,
//	}))
func Router(svc *Service, g *gate.Gate, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	middlewareOpts := []gate.MiddlewareOption{}
	if opts.UpgradeURL != "" {
		middlewareOpts = append(middlewareOpts, gate.WithUpgradeURL(opts.UpgradeURL))
	}

	r.Get("/access", accessHandler(svc))

	if opts.Employees != nil {
		r.Route("/employees", func(r chi.Router) {
			r.Use(g.Middleware(entitlement.NewCode(AddonFoundation), middlewareOpts...))
			r.Use(enforceQuota(svc))
			r.Handle("/*", opts.Employees)
		})
	}

	if opts.Payroll != nil {
		r.Route("/payroll", func(r chi.Router) {
			r.Use(g.Middleware(entitlement.NewCode(AddonPayroll), middlewareOpts...))
			r.Handle("/*", opts.Payroll)
		})
	}

	return r
}

// accessHandler exposes the composite capability view for the UI shell.
func accessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenant.IDFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "UNAUTHORIZED",
				"message": "Tenant context is missing.",
			})
			return
		}

		access, err := svc.Access(r.Context(), tenantID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "INTERNAL_ERROR",
				"message": "Access could not be computed. Please try again.",
			})
			return
		}
		writeJSON(w, http.StatusOK, access)
	}
}

// enforceQuota constrains employee writes by the tenant's quota decision:
// creates need headroom, and once an over-limit grace window lapses every
// write is blocked until the tenant upgrades. Reads always pass; over-quota
// records are never hidden.
func enforceQuota(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			tenantID, ok := tenant.IDFromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":   "UNAUTHORIZED",
					"message": "Tenant context is missing.",
				})
				return
			}

			decision, err := svc.QuotaDecision(r.Context(), tenantID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "INTERNAL_ERROR",
					"message": "Quota could not be verified. Please try again.",
				})
				return
			}
			blocked := !decision.CanWrite
			if r.Method == http.MethodPost && !decision.CanAddEntities {
				blocked = true
			}
			if blocked {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"error":   "EMPLOYEE_LIMIT_REACHED",
					"limit":   decision.Limit,
					"count":   decision.Count,
					"message": decision.Reason,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
