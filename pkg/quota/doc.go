// Package quota layers tier-based employee ceilings on top of entitlement.
//
// The enforcer never re-resolves entitlement; callers hand it the resolved
// access state (trialing, tier, dependency-only) and a live employee count,
// and it answers what writes are currently allowed. Trial tenants get a
// fixed small ceiling, purchased tiers get their configured maximum, and
// tenants running only the foundation module are unconstrained.
//
// Going over the ceiling never hides or deletes data. A bounded grace
// window opens once per breach: during it, writes that would increase the
// count are blocked while everything else keeps working; after it lapses,
// all writes block until the tenant upgrades.
package quota
