package memory

import (
	"context"
	"sort"
	"sync"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// PairStore is an in-memory implementation of storage.PairStore. Pair rows
// carry no unique key, so the store is a plain append log.
type PairStore struct {
	mu   sync.RWMutex
	data []*domain.PairCandidate
}

// NewPairStore creates a new in-memory pair store.
func NewPairStore() *PairStore {
	return &PairStore{}
}

// InsertBulk appends a batch of pair rows. Identical rows are kept: two
// pairings that happen to share every observable are still two candidates.
func (s *PairStore) InsertBulk(_ context.Context, pairs []*domain.PairCandidate) error {
	if len(pairs) == 0 {
		return nil
	}

	for _, p := range pairs {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pairs {
		pairCopy := *p
		s.data = append(s.data, &pairCopy)
	}
	return nil
}

// GetByCollision retrieves all pairs built in one collision, in insertion order.
func (s *PairStore) GetByCollision(_ context.Context, collisionRef int64) ([]*domain.PairCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PairCandidate
	for _, p := range s.data {
		if p.CollisionRef == collisionRef {
			pairCopy := *p
			result = append(result, &pairCopy)
		}
	}

	return result, nil
}

// GetAll retrieves every pair row, ordered by collision_ref ASC. Rows of the
// same collision keep their insertion order.
func (s *PairStore) GetAll(_ context.Context) ([]*domain.PairCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PairCandidate, 0, len(s.data))
	for _, p := range s.data {
		pairCopy := *p
		result = append(result, &pairCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CollisionRef < result[j].CollisionRef
	})

	return result, nil
}

// Count returns the number of stored pair rows.
func (s *PairStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// Verify interface compliance at compile time.
var _ storage.PairStore = (*PairStore)(nil)
