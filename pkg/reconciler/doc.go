// Package reconciler advances persisted subscription status as trial,
// payment, and grace deadlines pass.
//
// Resolution on the live request path never waits for this job; it exists so
// listings, dashboards, and downstream jobs see correct status even for
// tenants with no recent traffic. The service has an explicit Start/Stop
// lifecycle with an injected clock so tests can drive sweeps directly, and
// every write is a conditional compare-and-set so concurrent sweeps from
// multiple replicas cannot double-apply a transition.
package reconciler
