package clickhouse

import (
	"context"
	"fmt"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/storage"
)

// PairStore implements storage.PairStore using ClickHouse. Pair rows carry
// no unique key, so inserts go straight into the MergeTree without any
// duplicate checking.
type PairStore struct {
	conn *Conn
}

// NewPairStore creates a new PairStore.
func NewPairStore(conn *Conn) *PairStore {
	return &PairStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PairStore = (*PairStore)(nil)

// InsertBulk appends a batch of pair rows.
func (s *PairStore) InsertBulk(ctx context.Context, pairs []*domain.PairCandidate) error {
	if len(pairs) == 0 {
		return nil
	}

	for _, p := range pairs {
		if p == nil {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pair_candidates (
			collision_ref, channel,
			inv_mass, pt,
			inv_mass_d, pt_d,
			inv_mass_v0, pt_v0,
			v0_cos_pa, v0_dca_to_pv, v0_radius
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range pairs {
		err = batch.Append(
			uint64(p.CollisionRef), p.Channel,
			p.InvMass, p.Pt,
			p.InvMassD, p.PtD,
			p.InvMassV0, p.PtV0,
			p.V0CosPA, p.V0DCAToPV, p.V0Radius,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCollision retrieves all pairs built in one collision, ordered by
// inv_mass ASC.
func (s *PairStore) GetByCollision(ctx context.Context, collisionRef int64) ([]*domain.PairCandidate, error) {
	query := `
		SELECT collision_ref, channel,
			inv_mass, pt,
			inv_mass_d, pt_d,
			inv_mass_v0, pt_v0,
			v0_cos_pa, v0_dca_to_pv, v0_radius
		FROM pair_candidates
		WHERE collision_ref = ?
		ORDER BY inv_mass ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(collisionRef))
	if err != nil {
		return nil, fmt.Errorf("query pairs by collision: %w", err)
	}
	defer rows.Close()

	return scanPairs(rows)
}

// GetAll retrieves every pair row, ordered by collision_ref ASC.
func (s *PairStore) GetAll(ctx context.Context) ([]*domain.PairCandidate, error) {
	query := `
		SELECT collision_ref, channel,
			inv_mass, pt,
			inv_mass_d, pt_d,
			inv_mass_v0, pt_v0,
			v0_cos_pa, v0_dca_to_pv, v0_radius
		FROM pair_candidates
		ORDER BY collision_ref ASC, inv_mass ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all pairs: %w", err)
	}
	defer rows.Close()

	return scanPairs(rows)
}

// Count returns the number of stored pair rows.
func (s *PairStore) Count(ctx context.Context) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM pair_candidates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pairs: %w", err)
	}
	return int64(count), nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPairs scans multiple rows into a slice of PairCandidate.
func scanPairs(rows chRows) ([]*domain.PairCandidate, error) {
	var pairs []*domain.PairCandidate

	for rows.Next() {
		var p domain.PairCandidate
		var collisionRef uint64

		err := rows.Scan(
			&collisionRef, &p.Channel,
			&p.InvMass, &p.Pt,
			&p.InvMassD, &p.PtD,
			&p.InvMassV0, &p.PtV0,
			&p.V0CosPA, &p.V0DCAToPV, &p.V0Radius,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}

		p.CollisionRef = int64(collisionRef)
		pairs = append(pairs, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair rows: %w", err)
	}

	return pairs, nil
}
