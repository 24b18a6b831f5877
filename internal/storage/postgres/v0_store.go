package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// V0Store implements storage.ReducedV0Store using PostgreSQL.
type V0Store struct {
	pool *Pool
}

// NewV0Store creates a new V0Store.
func NewV0Store(pool *Pool) *V0Store {
	return &V0Store{pool: pool}
}

// Compile-time interface check.
var _ storage.ReducedV0Store = (*V0Store)(nil)

// InsertBulk adds a batch of V0 records inside a single transaction.
// Returns ErrDuplicateKey on any id collision, ErrInvalidInput on a dangling
// collision_ref; the transaction rolls back either way.
func (s *V0Store) InsertBulk(ctx context.Context, v0s []*domain.ReducedV0) error {
	if len(v0s) == 0 {
		return nil
	}

	for _, v := range v0s {
		if v == nil || v.ID < 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reduced_v0s (
			id, collision_ref,
			pos_track_id, neg_track_id,
			dv_x, dv_y, dv_z,
			mass_k0short, mass_lambda, mass_antilambda,
			px, py, pz,
			cos_pa, dca_to_pv, radius,
			sel_bits
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17
		)
	`

	for _, v := range v0s {
		_, err := tx.Exec(ctx, query,
			v.ID,
			v.CollisionRef,
			v.PosTrackID,
			v.NegTrackID,
			v.DecayVertex.X,
			v.DecayVertex.Y,
			v.DecayVertex.Z,
			v.MassK0Short,
			v.MassLambda,
			v.MassAntiLambda,
			v.P.X,
			v.P.Y,
			v.P.Z,
			v.CosPA,
			v.DCAToPV,
			v.Radius,
			int16(v.SelBits),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			if isForeignKeyError(err) {
				return storage.ErrInvalidInput
			}
			return fmt.Errorf("insert v0 in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByCollision retrieves all V0 records referencing the given collision
// row, ordered by id ASC.
func (s *V0Store) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedV0, error) {
	query := `
		SELECT id, collision_ref,
			pos_track_id, neg_track_id,
			dv_x, dv_y, dv_z,
			mass_k0short, mass_lambda, mass_antilambda,
			px, py, pz,
			cos_pa, dca_to_pv, radius,
			sel_bits
		FROM reduced_v0s
		WHERE collision_ref = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, collisionRef)
	if err != nil {
		return nil, fmt.Errorf("get v0s by collision: %w", err)
	}
	defer rows.Close()

	return scanV0s(rows)
}

// GetAll retrieves every V0 record, ordered by id ASC.
func (s *V0Store) GetAll(ctx context.Context) ([]*domain.ReducedV0, error) {
	query := `
		SELECT id, collision_ref,
			pos_track_id, neg_track_id,
			dv_x, dv_y, dv_z,
			mass_k0short, mass_lambda, mass_antilambda,
			px, py, pz,
			cos_pa, dca_to_pv, radius,
			sel_bits
		FROM reduced_v0s
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all v0s: %w", err)
	}
	defer rows.Close()

	return scanV0s(rows)
}

// Count returns the number of stored V0 records.
func (s *V0Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reduced_v0s`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count v0s: %w", err)
	}
	return n, nil
}

// scanV0s scans multiple rows into a slice of ReducedV0.
func scanV0s(rows pgx.Rows) ([]*domain.ReducedV0, error) {
	var v0s []*domain.ReducedV0

	for rows.Next() {
		var v domain.ReducedV0
		var selBits int16

		err := rows.Scan(
			&v.ID,
			&v.CollisionRef,
			&v.PosTrackID,
			&v.NegTrackID,
			&v.DecayVertex.X,
			&v.DecayVertex.Y,
			&v.DecayVertex.Z,
			&v.MassK0Short,
			&v.MassLambda,
			&v.MassAntiLambda,
			&v.P.X,
			&v.P.Y,
			&v.P.Z,
			&v.CosPA,
			&v.DCAToPV,
			&v.Radius,
			&selBits,
		)
		if err != nil {
			return nil, fmt.Errorf("scan v0 row: %w", err)
		}

		v.SelBits = domain.V0SelectionBits(selBits)
		v0s = append(v0s, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate v0 rows: %w", err)
	}

	return v0s, nil
}
