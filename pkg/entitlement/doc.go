// Package entitlement decides, for a tenant and a paid add-on, whether access
// is currently permitted, under what degraded mode, and why.
//
// The engine reconciles the persisted subscription lifecycle (trial, paid,
// grace, expired, cancelled) against wall-clock time on every call. Verdicts
// are derived values: they are never persisted and never cached on the live
// request path, so a tenant whose payment lapsed a second ago is denied on
// the very next request without waiting for any background job.
//
// Key concepts:
//
//   - Code: an explicit (base, variant) add-on key, e.g. payroll / payroll.in
//   - Record: a tenant's persisted subscription to one add-on
//   - Verdict: the derived entitlement decision with state and reason code
//   - Resolver: Record + time -> Verdict
//   - Checker: OR-satisfied prerequisite resolution across variant families
//
// Basic usage:
//
//	store := entitlement.NewMemoryStore()
//	resolver := entitlement.NewResolver(store)
//
//	checker, err := entitlement.NewChecker(ctx, entitlement.NewMemGraphSource(entitlement.Graph{
//	    "payroll": {"hr-foundation"},
//	}), resolver)
//
//	verdict, err := resolver.Resolve(ctx, tenantID, entitlement.ParseCode("payroll.in"))
//	if verdict.Entitled {
//	    // allow
//	}
//
//	deps, err := checker.Check(ctx, tenantID, entitlement.NewCode("payroll"))
//	if !deps.Satisfied {
//	    // deny, naming deps.Missing
//	}
//
// Not being entitled is a normal result, not an error. Errors are reserved
// for infrastructure failure, and even then the verdict fails closed.
package entitlement
