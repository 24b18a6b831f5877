package memory

import (
	"context"
	"sort"
	"sync"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// CollisionStore is an in-memory implementation of storage.ReducedCollisionStore.
type CollisionStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.ReducedCollision // keyed by assigned row id
}

// NewCollisionStore creates a new in-memory collision store.
func NewCollisionStore() *CollisionStore {
	return &CollisionStore{
		data: make(map[int64]*domain.ReducedCollision),
	}
}

// Insert adds a new collision record. Returns ErrDuplicateKey if the id exists.
func (s *CollisionStore) Insert(_ context.Context, c *domain.ReducedCollision) error {
	if c == nil || c.ID < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	colCopy := *c
	s.data[c.ID] = &colCopy
	return nil
}

// GetByID retrieves a collision record by its id. Returns ErrNotFound if not exists.
func (s *CollisionStore) GetByID(_ context.Context, id int64) (*domain.ReducedCollision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	colCopy := *c
	return &colCopy, nil
}

// GetAll retrieves every collision record, ordered by id ASC.
func (s *CollisionStore) GetAll(_ context.Context) ([]*domain.ReducedCollision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReducedCollision, 0, len(s.data))
	for _, c := range s.data {
		colCopy := *c
		result = append(result, &colCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Count returns the number of stored collision records.
func (s *CollisionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// Verify interface compliance at compile time.
var _ storage.ReducedCollisionStore = (*CollisionStore)(nil)
