package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Tenant carries the minimal identity the entitlement engine needs about the
// organization making a request. Resolution (subdomain, header, JWT claim) is
// owned by the surrounding application; this engine only consumes the result.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Subdomain string    `json:"subdomain"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Country   string    `json:"country,omitempty"` // ISO code used to pick add-on variants
	CreatedAt time.Time `json:"created_at"`
}
