package storage

import (
	"context"

	"charm-reso-lab/internal/domain"
)

// ReducedCollisionStore provides access to reduced_collisions storage.
type ReducedCollisionStore interface {
	// Insert adds a new collision record. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, c *domain.ReducedCollision) error

	// GetByID retrieves a collision record by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.ReducedCollision, error)

	// GetAll retrieves every collision record, ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.ReducedCollision, error)

	// Count returns the number of stored collision records.
	Count(ctx context.Context) (int64, error)
}

// ReducedDStore provides access to reduced_d_candidates storage.
type ReducedDStore interface {
	// InsertBulk adds multiple D records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, cands []*domain.ReducedDCandidate) error

	// GetByCollision retrieves all D records of one collision, ordered by id ASC.
	GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedDCandidate, error)

	// GetAll retrieves every D record, ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.ReducedDCandidate, error)

	// Count returns the number of stored D records.
	Count(ctx context.Context) (int64, error)
}

// ReducedV0Store provides access to reduced_v0s storage.
type ReducedV0Store interface {
	// InsertBulk adds multiple V0 records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, v0s []*domain.ReducedV0) error

	// GetByCollision retrieves all V0 records of one collision, ordered by id ASC.
	GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedV0, error)

	// GetAll retrieves every V0 record, ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.ReducedV0, error)

	// Count returns the number of stored V0 records.
	Count(ctx context.Context) (int64, error)
}

// PairStore provides access to pair_candidates storage. Pair rows carry no
// unique key: distinct pairs are distinct physics candidates, and identical
// rows are legitimate, so inserts never deduplicate.
type PairStore interface {
	// InsertBulk appends multiple pair rows.
	InsertBulk(ctx context.Context, pairs []*domain.PairCandidate) error

	// GetByCollision retrieves all pairs built in one collision.
	GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.PairCandidate, error)

	// GetAll retrieves every pair row, ordered by collision_ref ASC.
	GetAll(ctx context.Context) ([]*domain.PairCandidate, error)

	// Count returns the number of stored pair rows.
	Count(ctx context.Context) (int64, error)
}
