package tenant

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// HeaderTenantID is the request header the API gateway sets after
// authenticating the caller.
const HeaderTenantID = "X-Tenant-ID"

// LoadFunc fetches the full tenant for an authenticated tenant ID. Return
// ErrNoTenantInContext semantics by returning a nil tenant with an error.
type LoadFunc func(ctx context.Context, id uuid.UUID) (*Tenant, error)

// Middleware resolves the tenant from the gateway header and stores it in
// the request context. Requests without a valid tenant ID get 401; inactive
// tenants get 403. A nil load func trusts the header and builds a minimal
// active tenant from the ID alone.
func Middleware(load LoadFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(HeaderTenantID))
			if err != nil {
				unauthorized(w, "Tenant identity is missing or malformed.")
				return
			}

			t := &Tenant{ID: id, Active: true}
			if load != nil {
				t, err = load(r.Context(), id)
				if err != nil || t == nil {
					unauthorized(w, "Tenant could not be resolved.")
					return
				}
			}
			if !t.Active {
				writeError(w, http.StatusForbidden, "TENANT_INACTIVE", "This account has been deactivated.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
