package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Authorization
}

// NewMemoryStore builds an in-memory authorization store for testing and
// development. It enforces the same fingerprint uniqueness rule as the
// Postgres store.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Authorization)}
}

func (s *memoryStore) FindOrCreate(_ context.Context, organizationID, userID string) (Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.OrganizationID == organizationID && rec.UserID == userID && rec.Name == MethodName {
			return rec, nil
		}
	}
	rec := Authorization{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		UserID:         userID,
		Name:           MethodName,
		State:          StatePending,
		CreatedAt:      time.Now().UTC(),
	}
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Authorization{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) FingerprintClaimed(_ context.Context, organizationID, fingerprint, excludeUserID string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimedLocked(organizationID, fingerprint, excludeUserID), nil
}

func (s *memoryStore) claimedLocked(organizationID, fingerprint, excludeUserID string) bool {
	for _, rec := range s.records {
		if rec.OrganizationID == organizationID &&
			rec.Name == MethodName &&
			rec.UserID != excludeUserID &&
			rec.Granted() &&
			rec.Metadata.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

func (s *memoryStore) ListGranted(_ context.Context, organizationID string) ([]Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Authorization
	for _, rec := range s.records {
		if rec.OrganizationID == organizationID && rec.Name == MethodName && rec.Granted() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memoryStore) Grant(_ context.Context, id string, metadata Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if s.claimedLocked(rec.OrganizationID, metadata.Fingerprint, rec.UserID) {
		return ErrFingerprintTaken
	}
	rec.Metadata = metadata
	rec.State = StateGranted
	rec.GrantedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// SeedGranted is a test helper that inserts a granted record directly.
func SeedGranted(s Store, organizationID, userID string, metadata Metadata) (Authorization, bool) {
	mem, ok := s.(*memoryStore)
	if !ok {
		return Authorization{}, false
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec := Authorization{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		UserID:         userID,
		Name:           MethodName,
		State:          StateGranted,
		Metadata:       metadata,
		GrantedAt:      time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	mem.records[rec.ID] = rec
	return rec, true
}
