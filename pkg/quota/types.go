package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// Unlimited indicates no ceiling for a tier (-1 chosen for SQL compatibility).
	Unlimited int64 = -1

	// TrialEmployeeLimit is the fixed ceiling applied while the paid module
	// is in its trial window.
	TrialEmployeeLimit int64 = 5
)

// Tier describes a purchased pricing tier and its employee ceiling.
type Tier struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	MaxEmployees int64  `yaml:"max_employees"` // -1 represents unlimited
}

// CounterFunc returns the live count of quota-consuming entities (active
// employees) for a tenant. Must be fast; back it with a database aggregate
// or a cached value, it runs on every enforced write.
type CounterFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// GraceWindow records an over-quota breach. It is opened once per breach and
// never extended; when it lapses all writes block until the tenant upgrades.
type GraceWindow struct {
	TenantID  uuid.UUID
	Limit     int64 // the ceiling that was breached
	OpenedAt  time.Time
	ExpiresAt time.Time
}

// Active reports whether the window still covers the given time.
func (w *GraceWindow) Active(now time.Time) bool {
	return w != nil && !now.After(w.ExpiresAt)
}

// Decision is the enforcer's answer for one tenant. Over-quota entities are
// never deleted or hidden; the decision only constrains writes.
type Decision struct {
	Limit          int64 // effective ceiling, -1 for unlimited
	Count          int64 // live entity count
	OverLimit      bool
	CanAddEntities bool // writes that would increase the count
	CanWrite       bool // any other write
	GraceExpiresAt *time.Time // set while an over-quota grace window is open
	Reason         string     // human-readable explanation when constrained
}
