package observability

import (
	"context"
	"time"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// observeStore records one store operation.
func (m *Metrics) observeStore(store, op string, start time.Time, err error) {
	m.DBWriteDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.DBWriteErrors.WithLabelValues(store, op).Inc()
	}
}

// InstrumentedCollisionStore times every ReducedCollisionStore operation.
type InstrumentedCollisionStore struct {
	next storage.ReducedCollisionStore
	m    *Metrics
}

// NewInstrumentedCollisionStore wraps next. Passing nil metrics selects
// DefaultMetrics.
func NewInstrumentedCollisionStore(next storage.ReducedCollisionStore, m *Metrics) *InstrumentedCollisionStore {
	if m == nil {
		m = DefaultMetrics
	}
	return &InstrumentedCollisionStore{next: next, m: m}
}

var _ storage.ReducedCollisionStore = (*InstrumentedCollisionStore)(nil)

func (s *InstrumentedCollisionStore) Insert(ctx context.Context, c *domain.ReducedCollision) error {
	start := time.Now()
	err := s.next.Insert(ctx, c)
	s.m.observeStore("collisions", "insert", start, err)
	return err
}

func (s *InstrumentedCollisionStore) GetByID(ctx context.Context, id int64) (*domain.ReducedCollision, error) {
	start := time.Now()
	c, err := s.next.GetByID(ctx, id)
	s.m.observeStore("collisions", "get_by_id", start, err)
	return c, err
}

func (s *InstrumentedCollisionStore) GetAll(ctx context.Context) ([]*domain.ReducedCollision, error) {
	start := time.Now()
	cs, err := s.next.GetAll(ctx)
	s.m.observeStore("collisions", "get_all", start, err)
	return cs, err
}

func (s *InstrumentedCollisionStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.m.observeStore("collisions", "count", start, err)
	return n, err
}

// InstrumentedDStore times every ReducedDStore operation.
type InstrumentedDStore struct {
	next storage.ReducedDStore
	m    *Metrics
}

// NewInstrumentedDStore wraps next. Passing nil metrics selects
// DefaultMetrics.
func NewInstrumentedDStore(next storage.ReducedDStore, m *Metrics) *InstrumentedDStore {
	if m == nil {
		m = DefaultMetrics
	}
	return &InstrumentedDStore{next: next, m: m}
}

var _ storage.ReducedDStore = (*InstrumentedDStore)(nil)

func (s *InstrumentedDStore) InsertBulk(ctx context.Context, cands []*domain.ReducedDCandidate) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, cands)
	s.m.observeStore("d_candidates", "insert_bulk", start, err)
	return err
}

func (s *InstrumentedDStore) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedDCandidate, error) {
	start := time.Now()
	cs, err := s.next.GetByCollision(ctx, collisionRef)
	s.m.observeStore("d_candidates", "get_by_collision", start, err)
	return cs, err
}

func (s *InstrumentedDStore) GetAll(ctx context.Context) ([]*domain.ReducedDCandidate, error) {
	start := time.Now()
	cs, err := s.next.GetAll(ctx)
	s.m.observeStore("d_candidates", "get_all", start, err)
	return cs, err
}

func (s *InstrumentedDStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.m.observeStore("d_candidates", "count", start, err)
	return n, err
}

// InstrumentedV0Store times every ReducedV0Store operation.
type InstrumentedV0Store struct {
	next storage.ReducedV0Store
	m    *Metrics
}

// NewInstrumentedV0Store wraps next. Passing nil metrics selects
// DefaultMetrics.
func NewInstrumentedV0Store(next storage.ReducedV0Store, m *Metrics) *InstrumentedV0Store {
	if m == nil {
		m = DefaultMetrics
	}
	return &InstrumentedV0Store{next: next, m: m}
}

var _ storage.ReducedV0Store = (*InstrumentedV0Store)(nil)

func (s *InstrumentedV0Store) InsertBulk(ctx context.Context, v0s []*domain.ReducedV0) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, v0s)
	s.m.observeStore("v0s", "insert_bulk", start, err)
	return err
}

func (s *InstrumentedV0Store) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedV0, error) {
	start := time.Now()
	vs, err := s.next.GetByCollision(ctx, collisionRef)
	s.m.observeStore("v0s", "get_by_collision", start, err)
	return vs, err
}

func (s *InstrumentedV0Store) GetAll(ctx context.Context) ([]*domain.ReducedV0, error) {
	start := time.Now()
	vs, err := s.next.GetAll(ctx)
	s.m.observeStore("v0s", "get_all", start, err)
	return vs, err
}

func (s *InstrumentedV0Store) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.m.observeStore("v0s", "count", start, err)
	return n, err
}

// InstrumentedPairStore times every PairStore operation.
type InstrumentedPairStore struct {
	next storage.PairStore
	m    *Metrics
}

// NewInstrumentedPairStore wraps next. Passing nil metrics selects
// DefaultMetrics.
func NewInstrumentedPairStore(next storage.PairStore, m *Metrics) *InstrumentedPairStore {
	if m == nil {
		m = DefaultMetrics
	}
	return &InstrumentedPairStore{next: next, m: m}
}

var _ storage.PairStore = (*InstrumentedPairStore)(nil)

func (s *InstrumentedPairStore) InsertBulk(ctx context.Context, pairs []*domain.PairCandidate) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, pairs)
	s.m.observeStore("pairs", "insert_bulk", start, err)
	return err
}

func (s *InstrumentedPairStore) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.PairCandidate, error) {
	start := time.Now()
	ps, err := s.next.GetByCollision(ctx, collisionRef)
	s.m.observeStore("pairs", "get_by_collision", start, err)
	return ps, err
}

func (s *InstrumentedPairStore) GetAll(ctx context.Context) ([]*domain.PairCandidate, error) {
	start := time.Now()
	ps, err := s.next.GetAll(ctx)
	s.m.observeStore("pairs", "get_all", start, err)
	return ps, err
}

func (s *InstrumentedPairStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.m.observeStore("pairs", "count", start, err)
	return n, err
}
