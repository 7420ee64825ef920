package entitlement

import "errors"

var (
	ErrRecordNotFound    = errors.New("entitlement record not found")
	ErrStoreUnavailable  = errors.New("entitlement record store unavailable")
	ErrInvalidRecord     = errors.New("invalid entitlement record")
	ErrMissingTenantID   = errors.New("tenant ID is required")
	ErrMissingAddonCode  = errors.New("addon code is required")
	ErrFailedToLoadGraph = errors.New("failed to load dependency graph")
)
