package entitlement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordKey struct {
	tenantID uuid.UUID
	addon    Code
}

// memoryStore is a mutex-guarded in-memory RecordStore for tests and
// development environments.
type memoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
}

// NewMemoryStore returns an empty in-memory RecordStore.
func NewMemoryStore() RecordStore {
	return &memoryStore{records: make(map[recordKey]*Record)}
}

func (s *memoryStore) Get(ctx context.Context, tenantID uuid.UUID, addon Code) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordKey{tenantID: tenantID, addon: addon}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyRecord(record), nil
}

func (s *memoryStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Record
	for key, record := range s.records {
		if key.tenantID == tenantID {
			result = append(result, copyRecord(record))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Addon.String() < result[j].Addon.String()
	})
	return result, nil
}

func (s *memoryStore) ListInstalled(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Record
	for _, record := range s.records {
		if record.InstallStatus == InstallActive {
			result = append(result, copyRecord(record))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TenantID != result[j].TenantID {
			return result[i].TenantID.String() < result[j].TenantID.String()
		}
		return result[i].Addon.String() < result[j].Addon.String()
	})
	return result, nil
}

func (s *memoryStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return ErrInvalidRecord
	}
	if record.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}
	if record.Addon.IsZero() {
		return ErrMissingAddonCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[recordKey{tenantID: record.TenantID, addon: record.Addon}] = copyRecord(record)
	return nil
}

func (s *memoryStore) AdvanceBillingStatus(ctx context.Context, tenantID uuid.UUID, addon Code, from, to BillingStatus, graceUntil *time.Time, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordKey{tenantID: tenantID, addon: addon}]
	if !ok {
		return false, ErrRecordNotFound
	}
	if record.BillingStatus != from {
		return false, nil
	}

	record.BillingStatus = to
	if graceUntil != nil {
		graceCopy := *graceUntil
		record.GraceUntil = &graceCopy
	}
	record.UpdatedAt = now
	return true, nil
}

func copyRecord(record *Record) *Record {
	clone := *record
	clone.TrialEndsAt = copyTime(record.TrialEndsAt)
	clone.PaidUntil = copyTime(record.PaidUntil)
	clone.GraceUntil = copyTime(record.GraceUntil)
	return &clone
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
