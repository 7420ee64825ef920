// Package gate is the request-time access decision for paid add-ons: it
// combines the entitlement verdict, prerequisite modules, and the HTTP
// method into allow, allow-read-only, or deny.
//
// The decision order is deliberate. Dependency failure is checked before the
// add-on's own grace or read-only leniency, because a missing prerequisite
// is a harder failure that the dependent module's relaxed read policy must
// not soften. Grace-state tenants keep read access under GraceReadOnly but
// are pushed to renew before writing. Fully lapsed tenants with pre-existing
// data can keep read access through a domain-supplied fallback hook.
//
// Typical wiring:
//
//	g := gate.New(resolver, checker)
//	r.Route("/payroll", func(r chi.Router) {
//	    r.Use(g.Middleware(entitlement.NewCode("payroll")))
//	    // handlers
//	})
package gate
