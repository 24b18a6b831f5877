package verification

import (
	"context"
	"errors"
	"fmt"

	"charm-reso-lab/internal/storage"
)

// ErrCollisionNotFound is returned when a pair references a collision row
// that does not exist.
var ErrCollisionNotFound = errors.New("collision not found")

// Verifier re-derives stored pair rows from the reduced stores.
type Verifier struct {
	collisions storage.ReducedCollisionStore
	dcands     storage.ReducedDStore
	v0s        storage.ReducedV0Store
	pairs      storage.PairStore
}

// NewVerifier creates a verifier over the four reduced stores.
func NewVerifier(
	collisions storage.ReducedCollisionStore,
	dcands storage.ReducedDStore,
	v0s storage.ReducedV0Store,
	pairs storage.PairStore,
) *Verifier {
	return &Verifier{
		collisions: collisions,
		dcands:     dcands,
		v0s:        v0s,
		pairs:      pairs,
	}
}

// VerifyCollision verifies every pair row built in one collision.
func (v *Verifier) VerifyCollision(ctx context.Context, collisionRef int64) ([]PairResult, error) {
	// The collision row must exist before its pairs mean anything.
	if _, err := v.collisions.GetByID(ctx, collisionRef); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCollisionNotFound
		}
		return nil, err
	}

	pairRows, err := v.pairs.GetByCollision(ctx, collisionRef)
	if err != nil {
		return nil, fmt.Errorf("load pairs of collision %d: %w", collisionRef, err)
	}
	if len(pairRows) == 0 {
		return nil, nil
	}

	dRows, err := v.dcands.GetByCollision(ctx, collisionRef)
	if err != nil {
		return nil, fmt.Errorf("load d candidates of collision %d: %w", collisionRef, err)
	}
	v0Rows, err := v.v0s.GetByCollision(ctx, collisionRef)
	if err != nil {
		return nil, fmt.Errorf("load v0s of collision %d: %w", collisionRef, err)
	}

	results := make([]PairResult, len(pairRows))
	for i, p := range pairRows {
		results[i] = verifyPair(p, i, dRows, v0Rows)
	}
	return results, nil
}

// VerifyAll verifies every stored pair row, collision by collision.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	pairRows, err := v.pairs.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	// Visit collisions in first-seen order; GetAll is ordered by ref.
	var refs []int64
	counts := make(map[int64]int)
	for _, p := range pairRows {
		if _, seen := counts[p.CollisionRef]; !seen {
			refs = append(refs, p.CollisionRef)
		}
		counts[p.CollisionRef]++
	}

	report := &Report{
		TotalPairs: len(pairRows),
		Results:    make([]PairResult, 0, len(pairRows)),
	}

	for _, ref := range refs {
		results, err := v.VerifyCollision(ctx, ref)
		if err != nil {
			// A load failure marks every pair of the collision divergent.
			for i := 0; i < counts[ref]; i++ {
				report.Results = append(report.Results, PairResult{
					CollisionRef: ref,
					PairIndex:    i,
					Divergences: []FieldDivergence{
						{Field: "Error", Expected: nil, Actual: err.Error()},
					},
				})
				report.DivergentPairs++
			}
			continue
		}

		for _, r := range results {
			report.Results = append(report.Results, r)
			if r.Match {
				report.MatchedPairs++
			} else {
				report.DivergentPairs++
			}
		}
	}

	return report, nil
}
