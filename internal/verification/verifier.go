// Package verification re-derives stored pair rows from their reduced legs.
// It catches cross-reference corruption and kinematics drift between what the
// engine wrote and what the stores hand back.
package verification

import (
	"math"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
)

// FloatTolerance is the tolerance for float64 comparisons. A recomputed field
// further than this from its stored value counts as a divergence.
const FloatTolerance = 1e-7

// hypotheses fixes the order leg interpretations are tried in.
var hypotheses = [...]domain.V0Hypothesis{domain.HypK0Short, domain.HypLambda, domain.HypAntiLambda}

// FieldDivergence represents a mismatch between a stored and a recomputed
// value.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// PairResult contains the result of verifying a single pair row.
type PairResult struct {
	CollisionRef int64             // collision the pair was built in
	PairIndex    int               // position within the collision's pair rows
	Match        bool              // true if some leg combination reproduces every field
	Divergences  []FieldDivergence // divergences of the closest combination
}

// Report contains results for batch verification.
type Report struct {
	TotalPairs     int          // total pair rows verified
	MatchedPairs   int          // rows reproduced exactly
	DivergentPairs int          // rows with divergences
	Results        []PairResult // individual results
}

// verifyPair re-derives one pair row from every stored (D, V0, hypothesis)
// combination of its collision. The row matches when at least one combination
// reproduces every field within FloatTolerance; otherwise the divergences of
// the combination that came closest are reported.
func verifyPair(p *domain.PairCandidate, idx int, dRows []*domain.ReducedDCandidate, v0Rows []*domain.ReducedV0) PairResult {
	result := PairResult{CollisionRef: p.CollisionRef, PairIndex: idx}

	var best []FieldDivergence
	for _, d := range dRows {
		for _, v0 := range v0Rows {
			for _, hyp := range hypotheses {
				if !v0.SelBits.Has(hyp) {
					continue
				}
				divergences := ComparePair(p, d, v0, hyp)
				if len(divergences) == 0 {
					result.Match = true
					return result
				}
				if best == nil || len(divergences) < len(best) {
					best = divergences
				}
			}
		}
	}

	if best == nil {
		best = []FieldDivergence{{
			Field:    "Legs",
			Expected: "a stored (D, V0) leg combination",
			Actual:   "none available",
		}}
	}
	result.Divergences = best
	return result
}

// ComparePair recomputes every derived field of a pair row from one leg
// interpretation and returns the divergences. The combined mass uses the
// nominal leg masses, exactly as the engine builds it.
func ComparePair(p *domain.PairCandidate, d *domain.ReducedDCandidate, v0 *domain.ReducedV0, hyp domain.V0Hypothesis) []FieldDivergence {
	ch := domain.DecayChannel(p.Channel)
	pairMass := kinematics.InvariantMass(d.P, v0.P, ch.ParentMass(), hyp.NominalMass())
	pairPt := kinematics.Pt(kinematics.Add(d.P, v0.P))

	checks := []struct {
		field      string
		stored     float64
		recomputed float64
	}{
		{"InvMass", p.InvMass, pairMass},
		{"Pt", p.Pt, pairPt},
		{"InvMassD", p.InvMassD, d.InvMass},
		{"PtD", p.PtD, kinematics.Pt(d.P)},
		{"InvMassV0", p.InvMassV0, v0.MassUnder(hyp)},
		{"PtV0", p.PtV0, kinematics.Pt(v0.P)},
		{"V0CosPA", p.V0CosPA, v0.CosPA},
		{"V0DCAToPV", p.V0DCAToPV, v0.DCAToPV},
		{"V0Radius", p.V0Radius, v0.Radius},
	}

	var divergences []FieldDivergence
	for _, c := range checks {
		if !floatEquals(c.stored, c.recomputed) {
			divergences = append(divergences, FieldDivergence{
				Field:    c.field,
				Expected: c.stored,
				Actual:   c.recomputed,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
