package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// CollisionStore implements storage.ReducedCollisionStore using PostgreSQL.
type CollisionStore struct {
	pool *Pool
}

// NewCollisionStore creates a new CollisionStore.
func NewCollisionStore(pool *Pool) *CollisionStore {
	return &CollisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReducedCollisionStore = (*CollisionStore)(nil)

// Insert adds a new collision record. Returns ErrDuplicateKey if the id exists.
func (s *CollisionStore) Insert(ctx context.Context, c *domain.ReducedCollision) error {
	if c == nil || c.ID < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reduced_collisions (
			id, pos_x, pos_y, pos_z,
			cov_xx, cov_xy, cov_yy, cov_xz, cov_yz, cov_zz,
			flags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID,
		c.Vertex.X,
		c.Vertex.Y,
		c.Vertex.Z,
		c.Cov[0],
		c.Cov[1],
		c.Cov[2],
		c.Cov[3],
		c.Cov[4],
		c.Cov[5],
		int16(c.Flags),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert collision: %w", err)
	}
	return nil
}

// GetByID retrieves a collision record by its id. Returns ErrNotFound if not exists.
func (s *CollisionStore) GetByID(ctx context.Context, id int64) (*domain.ReducedCollision, error) {
	query := `
		SELECT id, pos_x, pos_y, pos_z,
			cov_xx, cov_xy, cov_yy, cov_xz, cov_yz, cov_zz,
			flags
		FROM reduced_collisions
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	c, err := scanCollision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get collision by id: %w", err)
	}
	return c, nil
}

// GetAll retrieves every collision record, ordered by id ASC.
func (s *CollisionStore) GetAll(ctx context.Context) ([]*domain.ReducedCollision, error) {
	query := `
		SELECT id, pos_x, pos_y, pos_z,
			cov_xx, cov_xy, cov_yy, cov_xz, cov_yz, cov_zz,
			flags
		FROM reduced_collisions
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all collisions: %w", err)
	}
	defer rows.Close()

	return scanCollisions(rows)
}

// Count returns the number of stored collision records.
func (s *CollisionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reduced_collisions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collisions: %w", err)
	}
	return n, nil
}

// scanCollision scans a single row into a ReducedCollision.
func scanCollision(row pgx.Row) (*domain.ReducedCollision, error) {
	var c domain.ReducedCollision
	var flags int16

	err := row.Scan(
		&c.ID,
		&c.Vertex.X,
		&c.Vertex.Y,
		&c.Vertex.Z,
		&c.Cov[0],
		&c.Cov[1],
		&c.Cov[2],
		&c.Cov[3],
		&c.Cov[4],
		&c.Cov[5],
		&flags,
	)
	if err != nil {
		return nil, err
	}

	c.Flags = uint8(flags)
	return &c, nil
}

// scanCollisions scans multiple rows into a slice of ReducedCollision.
func scanCollisions(rows pgx.Rows) ([]*domain.ReducedCollision, error) {
	var collisions []*domain.ReducedCollision

	for rows.Next() {
		var c domain.ReducedCollision
		var flags int16

		err := rows.Scan(
			&c.ID,
			&c.Vertex.X,
			&c.Vertex.Y,
			&c.Vertex.Z,
			&c.Cov[0],
			&c.Cov[1],
			&c.Cov[2],
			&c.Cov[3],
			&c.Cov[4],
			&c.Cov[5],
			&flags,
		)
		if err != nil {
			return nil, fmt.Errorf("scan collision row: %w", err)
		}

		c.Flags = uint8(flags)
		collisions = append(collisions, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collision rows: %w", err)
	}

	return collisions, nil
}
