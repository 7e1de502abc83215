package accounts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

// MemoryStore is an in-process AccountMappingStore.
type MemoryStore struct {
	now      func() time.Time
	mappings map[string]model.AccountMapping
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		mappings: make(map[string]model.AccountMapping),
	}
}

func sameKey(m model.AccountMapping, institution, identifier string) bool {
	return m.Identifier == identifier && common.FoldEqual(m.Institution, institution)
}

// conflict returns an active mapping of the same identifier to a different account.
func (s *MemoryStore) conflict(institution, identifier, accountRef string) (model.AccountMapping, bool) {
	for _, m := range s.mappings {
		if m.IsActive && m.AccountRef != accountRef && sameKey(m, institution, identifier) {
			return m, true
		}
	}
	return model.AccountMapping{}, false
}

// SaveMapping implements service.AccountMappingStore.
func (s *MemoryStore) SaveMapping(_ context.Context, mapping *model.AccountMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if other, ok := s.conflict(mapping.Institution, mapping.Identifier, mapping.AccountRef); ok {
		return fmt.Errorf("identifier %s at %s already mapped to %s: %w",
			mapping.Identifier, mapping.Institution, other.AccountRef, common.ErrDuplicateEntry)
	}

	for id, existing := range s.mappings {
		if existing.AccountRef == mapping.AccountRef && sameKey(existing, mapping.Institution, mapping.Identifier) {
			existing.IsActive = true
			s.mappings[id] = existing
			*mapping = existing
			return nil
		}
	}

	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = s.now()
	}
	mapping.IsActive = true
	s.mappings[mapping.ID] = *mapping
	return nil
}

// FindActiveMapping implements service.AccountMappingStore.
func (s *MemoryStore) FindActiveMapping(_ context.Context, institution, identifier string) (*model.AccountMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.mappings {
		if m.IsActive && sameKey(m, institution, identifier) {
			found := m
			return &found, nil
		}
	}
	return nil, fmt.Errorf("mapping %s/%s: %w", institution, identifier, common.ErrNotFound)
}

// GetMappingsForAccount implements service.AccountMappingStore.
func (s *MemoryStore) GetMappingsForAccount(_ context.Context, accountRef string) ([]model.AccountMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.AccountMapping
	for _, m := range s.mappings {
		if m.AccountRef == accountRef {
			out = append(out, m)
		}
	}
	sortMappings(out)
	return out, nil
}

// GetAllMappings implements service.AccountMappingStore.
func (s *MemoryStore) GetAllMappings(_ context.Context) ([]model.AccountMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AccountMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	sortMappings(out)
	return out, nil
}

// SetMappingActive implements service.AccountMappingStore.
func (s *MemoryStore) SetMappingActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[id]
	if !ok {
		return fmt.Errorf("mapping %s: %w", id, common.ErrNotFound)
	}
	if active {
		if other, conflict := s.conflict(m.Institution, m.Identifier, m.AccountRef); conflict {
			return fmt.Errorf("identifier %s at %s already mapped to %s: %w",
				m.Identifier, m.Institution, other.AccountRef, common.ErrDuplicateEntry)
		}
	}
	m.IsActive = active
	s.mappings[id] = m
	return nil
}

// DeleteMapping implements service.AccountMappingStore.
func (s *MemoryStore) DeleteMapping(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[id]; !ok {
		return fmt.Errorf("mapping %s: %w", id, common.ErrNotFound)
	}
	delete(s.mappings, id)
	return nil
}

func sortMappings(mappings []model.AccountMapping) {
	sort.Slice(mappings, func(i, j int) bool {
		if !mappings[i].CreatedAt.Equal(mappings[j].CreatedAt) {
			return mappings[i].CreatedAt.Before(mappings[j].CreatedAt)
		}
		return mappings[i].ID < mappings[j].ID
	})
}
