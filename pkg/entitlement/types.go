package entitlement

import (
	"time"

	"github.com/google/uuid"
)

// InstallStatus reflects whether an add-on was ever provisioned for a tenant.
// Disablement is a status change, never a row deletion, so lapsed tenants keep
// their data for audit and read-only fallback.
type InstallStatus string

const (
	InstallActive   InstallStatus = "active"
	InstallDisabled InstallStatus = "disabled"
)

// BillingStatus is the persisted subscription lifecycle state. It is written
// by the billing collaborator on payment events and advanced by the
// reconciler as deadlines pass; the engine itself never moves it backward.
type BillingStatus string

const (
	BillingTrialing    BillingStatus = "trialing"
	BillingActive      BillingStatus = "active"
	BillingGracePeriod BillingStatus = "grace_period"
	BillingCancelled   BillingStatus = "cancelled"
	BillingExpired     BillingStatus = "expired"
	BillingHalted      BillingStatus = "halted"
)

// State is the derived entitlement state carried by a Verdict. Unlike
// BillingStatus it is never persisted; it is recomputed on every resolution
// against wall-clock time.
type State string

const (
	StateActive       State = "active"
	StateTrial        State = "trial"
	StateGrace        State = "grace"
	StateExpired      State = "expired"
	StateNotInstalled State = "not_installed"
	StateCancelled    State = "cancelled"
)

// ReasonCode is the closed set of machine-readable verdict reasons surfaced
// to route handlers and ultimately to the UI.
type ReasonCode string

const (
	// Positive outcomes.
	ReasonActive ReasonCode = "ADDON_ACTIVE"
	ReasonTrial  ReasonCode = "ADDON_TRIAL"
	ReasonGrace  ReasonCode = "ADDON_GRACE"

	// Denials.
	ReasonNotInstalled      ReasonCode = "ADDON_NOT_INSTALLED"
	ReasonTrialExpired      ReasonCode = "ADDON_TRIAL_EXPIRED"
	ReasonCancelled         ReasonCode = "ADDON_CANCELLED"
	ReasonExpired           ReasonCode = "ADDON_EXPIRED"
	ReasonDependencyMissing ReasonCode = "ADDON_DEPENDENCY_MISSING"
	ReasonDependencyExpired ReasonCode = "ADDON_DEPENDENCY_EXPIRED"
)

// Record is a tenant's subscription to a single add-on. It is owned by the
// billing collaborator; the engine reads it on every resolution and only the
// reconciler writes back, and only to BillingStatus/GraceUntil.
type Record struct {
	TenantID      uuid.UUID
	Addon         Code
	InstallStatus InstallStatus
	BillingStatus BillingStatus
	TrialEndsAt   *time.Time
	PaidUntil     *time.Time // end of the current paid period
	GraceUntil    *time.Time // set at most once per lapse, bounded by the grace duration
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Verdict is the derived access decision for one tenant/add-on pair.
// It is recomputed per call and never cached on the live request path.
type Verdict struct {
	Addon         Code       `json:"addon"`
	Entitled      bool       `json:"entitled"`
	State         State      `json:"state"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	Reason        ReasonCode `json:"reason"`
	DaysRemaining int        `json:"days_remaining"`
	Message       string     `json:"message"`
}

// daysRemainingAt converts a deadline into whole days left, rounding partial
// days up so "expires in 30 seconds" still reads as one day.
func daysRemainingAt(now time.Time, deadline time.Time) int {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return 0
	}
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}
