package memory

import (
	"context"
	"sort"
	"sync"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// V0Store is an in-memory implementation of storage.ReducedV0Store.
type V0Store struct {
	mu   sync.RWMutex
	data map[int64]*domain.ReducedV0
}

// NewV0Store creates a new in-memory V0 store.
func NewV0Store() *V0Store {
	return &V0Store{
		data: make(map[int64]*domain.ReducedV0),
	}
}

// InsertBulk adds a batch of V0 records. The batch is applied atomically:
// if any row is invalid or collides with a stored id, nothing is written.
func (s *V0Store) InsertBulk(_ context.Context, v0s []*domain.ReducedV0) error {
	if len(v0s) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range v0s {
		if v == nil || v.ID < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[v.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, v := range v0s {
		v0Copy := *v
		s.data[v.ID] = &v0Copy
	}
	return nil
}

// GetByCollision retrieves all V0 records referencing the given collision
// row, ordered by id ASC.
func (s *V0Store) GetByCollision(_ context.Context, collisionRef int64) ([]*domain.ReducedV0, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReducedV0
	for _, v := range s.data {
		if v.CollisionRef == collisionRef {
			v0Copy := *v
			result = append(result, &v0Copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetAll retrieves every V0 record, ordered by id ASC.
func (s *V0Store) GetAll(_ context.Context) ([]*domain.ReducedV0, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReducedV0, 0, len(s.data))
	for _, v := range s.data {
		v0Copy := *v
		result = append(result, &v0Copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Count returns the number of stored V0 records.
func (s *V0Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// Verify interface compliance at compile time.
var _ storage.ReducedV0Store = (*V0Store)(nil)
