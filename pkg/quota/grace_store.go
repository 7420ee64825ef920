package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// GraceStore persists over-quota grace windows. The in-memory implementation
// suits single-process deployments and tests; multi-replica deployments
// should back this with the database so every replica sees the same window.
type GraceStore interface {
	// Get returns the open window for a tenant, or ErrNoGraceWindow.
	Get(ctx context.Context, tenantID uuid.UUID) (*GraceWindow, error)

	// Put creates or replaces the window for a tenant.
	Put(ctx context.Context, window *GraceWindow) error

	// Clear removes the tenant's window. Clearing an absent window is a no-op.
	Clear(ctx context.Context, tenantID uuid.UUID) error
}

type memoryGraceStore struct {
	mu      sync.RWMutex
	windows map[uuid.UUID]GraceWindow
}

// NewMemoryGraceStore returns an empty in-memory GraceStore.
func NewMemoryGraceStore() GraceStore {
	return &memoryGraceStore{windows: make(map[uuid.UUID]GraceWindow)}
}

func (s *memoryGraceStore) Get(ctx context.Context, tenantID uuid.UUID) (*GraceWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window, ok := s.windows[tenantID]
	if !ok {
		return nil, ErrNoGraceWindow
	}
	clone := window
	return &clone, nil
}

func (s *memoryGraceStore) Put(ctx context.Context, window *GraceWindow) error {
	if window == nil {
		return ErrGraceStoreFailure
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[window.TenantID] = *window
	return nil
}

func (s *memoryGraceStore) Clear(ctx context.Context, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, tenantID)
	return nil
}
