package memory

import (
	"context"
	"sort"
	"sync"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// DCandidateStore is an in-memory implementation of storage.ReducedDStore.
type DCandidateStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.ReducedDCandidate
}

// NewDCandidateStore creates a new in-memory D-candidate store.
func NewDCandidateStore() *DCandidateStore {
	return &DCandidateStore{
		data: make(map[int64]*domain.ReducedDCandidate),
	}
}

// InsertBulk adds a batch of D-candidate records. The batch is applied
// atomically: if any row is invalid or collides with a stored id, nothing
// is written.
func (s *DCandidateStore) InsertBulk(_ context.Context, cands []*domain.ReducedDCandidate) error {
	if len(cands) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cands {
		if c == nil || c.ID < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, c := range cands {
		candCopy := *c
		s.data[c.ID] = &candCopy
	}
	return nil
}

// GetByCollision retrieves all D-candidate records referencing the given
// collision row, ordered by id ASC.
func (s *DCandidateStore) GetByCollision(_ context.Context, collisionRef int64) ([]*domain.ReducedDCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReducedDCandidate
	for _, c := range s.data {
		if c.CollisionRef == collisionRef {
			candCopy := *c
			result = append(result, &candCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetAll retrieves every D-candidate record, ordered by id ASC.
func (s *DCandidateStore) GetAll(_ context.Context) ([]*domain.ReducedDCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReducedDCandidate, 0, len(s.data))
	for _, c := range s.data {
		candCopy := *c
		result = append(result, &candCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Count returns the number of stored D-candidate records.
func (s *DCandidateStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// Verify interface compliance at compile time.
var _ storage.ReducedDStore = (*DCandidateStore)(nil)
