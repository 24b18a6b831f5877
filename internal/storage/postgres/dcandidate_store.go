package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// DCandidateStore implements storage.ReducedDStore using PostgreSQL.
type DCandidateStore struct {
	pool *Pool
}

// NewDCandidateStore creates a new DCandidateStore.
func NewDCandidateStore(pool *Pool) *DCandidateStore {
	return &DCandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReducedDStore = (*DCandidateStore)(nil)

// InsertBulk adds a batch of D-candidate records inside a single transaction.
// Returns ErrDuplicateKey on any id collision, ErrInvalidInput on a dangling
// collision_ref; the transaction rolls back either way.
func (s *DCandidateStore) InsertBulk(ctx context.Context, cands []*domain.ReducedDCandidate) error {
	if len(cands) == 0 {
		return nil
	}

	for _, c := range cands {
		if c == nil || c.ID < 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reduced_d_candidates (
			id, collision_ref,
			prong0_id, prong1_id, prong2_id,
			sv_x, sv_y, sv_z,
			px, py, pz,
			inv_mass, signed_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, c := range cands {
		_, err := tx.Exec(ctx, query,
			c.ID,
			c.CollisionRef,
			c.ProngIDs[0],
			c.ProngIDs[1],
			c.ProngIDs[2],
			c.SecondaryVertex.X,
			c.SecondaryVertex.Y,
			c.SecondaryVertex.Z,
			c.P.X,
			c.P.Y,
			c.P.Z,
			c.InvMass,
			int16(c.SignedType),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			if isForeignKeyError(err) {
				return storage.ErrInvalidInput
			}
			return fmt.Errorf("insert d candidate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByCollision retrieves all D-candidate records referencing the given
// collision row, ordered by id ASC.
func (s *DCandidateStore) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.ReducedDCandidate, error) {
	query := `
		SELECT id, collision_ref,
			prong0_id, prong1_id, prong2_id,
			sv_x, sv_y, sv_z,
			px, py, pz,
			inv_mass, signed_type
		FROM reduced_d_candidates
		WHERE collision_ref = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, collisionRef)
	if err != nil {
		return nil, fmt.Errorf("get d candidates by collision: %w", err)
	}
	defer rows.Close()

	return scanDCandidates(rows)
}

// GetAll retrieves every D-candidate record, ordered by id ASC.
func (s *DCandidateStore) GetAll(ctx context.Context) ([]*domain.ReducedDCandidate, error) {
	query := `
		SELECT id, collision_ref,
			prong0_id, prong1_id, prong2_id,
			sv_x, sv_y, sv_z,
			px, py, pz,
			inv_mass, signed_type
		FROM reduced_d_candidates
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all d candidates: %w", err)
	}
	defer rows.Close()

	return scanDCandidates(rows)
}

// Count returns the number of stored D-candidate records.
func (s *DCandidateStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reduced_d_candidates`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count d candidates: %w", err)
	}
	return n, nil
}

// scanDCandidates scans multiple rows into a slice of ReducedDCandidate.
func scanDCandidates(rows pgx.Rows) ([]*domain.ReducedDCandidate, error) {
	var cands []*domain.ReducedDCandidate

	for rows.Next() {
		var c domain.ReducedDCandidate
		var signedType int16

		err := rows.Scan(
			&c.ID,
			&c.CollisionRef,
			&c.ProngIDs[0],
			&c.ProngIDs[1],
			&c.ProngIDs[2],
			&c.SecondaryVertex.X,
			&c.SecondaryVertex.Y,
			&c.SecondaryVertex.Z,
			&c.P.X,
			&c.P.Y,
			&c.P.Z,
			&c.InvMass,
			&signedType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan d candidate row: %w", err)
		}

		c.SignedType = int8(signedType)
		cands = append(cands, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate d candidate rows: %w", err)
	}

	return cands, nil
}
