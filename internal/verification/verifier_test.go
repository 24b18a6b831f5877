package verification

import (
	"context"
	"testing"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
	"charm-reso-lab/internal/storage/memory"
)

func testLegs() (*domain.ReducedDCandidate, *domain.ReducedV0) {
	d := &domain.ReducedDCandidate{
		ID:           0,
		CollisionRef: 0,
		ProngIDs:     [3]int64{11, 12, 13},
		InvMass:      1.87,
		P:            domain.Vec3{X: 1.0, Y: 0.5, Z: 0.2},
		SignedType:   1,
	}
	v0 := &domain.ReducedV0{
		ID:             0,
		CollisionRef:   0,
		PosTrackID:     101,
		NegTrackID:     102,
		MassK0Short:    0.4976,
		MassLambda:     1.11,
		MassAntiLambda: 1.12,
		P:              domain.Vec3{X: -0.3, Y: 0.8, Z: 0.1},
		CosPA:          0.999,
		DCAToPV:        0.05,
		Radius:         1.9,
		SelBits:        1 << domain.HypK0Short,
	}
	return d, v0
}

// pairFrom builds the pair row the engine would emit for one leg combination.
func pairFrom(d *domain.ReducedDCandidate, v0 *domain.ReducedV0, ch domain.DecayChannel, hyp domain.V0Hypothesis) *domain.PairCandidate {
	return &domain.PairCandidate{
		CollisionRef: d.CollisionRef,
		Channel:      uint8(ch),
		InvMass:      kinematics.InvariantMass(d.P, v0.P, ch.ParentMass(), hyp.NominalMass()),
		Pt:           kinematics.Pt(kinematics.Add(d.P, v0.P)),
		InvMassD:     d.InvMass,
		PtD:          kinematics.Pt(d.P),
		InvMassV0:    v0.MassUnder(hyp),
		PtV0:         kinematics.Pt(v0.P),
		V0CosPA:      v0.CosPA,
		V0DCAToPV:    v0.DCAToPV,
		V0Radius:     v0.Radius,
	}
}

func TestComparePair_ExactMatch(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)

	divergences := ComparePair(p, d, v0, domain.HypK0Short)
	if len(divergences) != 0 {
		t.Errorf("Expected 0 divergences, got %d: %v", len(divergences), divergences)
	}
}

func TestComparePair_WithinTolerance(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)
	p.Pt += FloatTolerance / 2

	divergences := ComparePair(p, d, v0, domain.HypK0Short)
	if len(divergences) != 0 {
		t.Errorf("Expected 0 divergences inside tolerance, got %d: %v", len(divergences), divergences)
	}
}

func TestComparePair_MassDivergence(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)
	p.InvMass += 1e-5

	divergences := ComparePair(p, d, v0, domain.HypK0Short)
	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "InvMass" {
		t.Errorf("Divergent field = %q, want InvMass", divergences[0].Field)
	}
}

func TestComparePair_WrongHypothesis(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)

	// Reading the same row under the Lambda hypothesis shifts both the
	// combined and the V0 leg mass.
	divergences := ComparePair(p, d, v0, domain.HypLambda)
	if len(divergences) < 2 {
		t.Errorf("Expected at least 2 divergences, got %d: %v", len(divergences), divergences)
	}
}

func setupVerifierStores(t *testing.T, pairs []*domain.PairCandidate) *Verifier {
	t.Helper()
	ctx := context.Background()

	collisionStore := memory.NewCollisionStore()
	dStore := memory.NewDCandidateStore()
	v0Store := memory.NewV0Store()
	pairStore := memory.NewPairStore()

	d, v0 := testLegs()
	if err := collisionStore.Insert(ctx, &domain.ReducedCollision{ID: 0, Vertex: domain.Vec3{Z: 1.0}}); err != nil {
		t.Fatalf("Insert collision failed: %v", err)
	}
	if err := dStore.InsertBulk(ctx, []*domain.ReducedDCandidate{d}); err != nil {
		t.Fatalf("InsertBulk dcands failed: %v", err)
	}
	if err := v0Store.InsertBulk(ctx, []*domain.ReducedV0{v0}); err != nil {
		t.Fatalf("InsertBulk v0s failed: %v", err)
	}
	if err := pairStore.InsertBulk(ctx, pairs); err != nil {
		t.Fatalf("InsertBulk pairs failed: %v", err)
	}

	return NewVerifier(collisionStore, dStore, v0Store, pairStore)
}

func TestVerifyAll_Clean(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)
	verifier := setupVerifierStores(t, []*domain.PairCandidate{p})

	report, err := verifier.VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.TotalPairs != 1 || report.MatchedPairs != 1 || report.DivergentPairs != 0 {
		t.Errorf("Report = %d/%d/%d, want 1 total, 1 matched, 0 divergent",
			report.TotalPairs, report.MatchedPairs, report.DivergentPairs)
	}
	if len(report.Results) != 1 || !report.Results[0].Match {
		t.Errorf("Results = %+v, want one matching result", report.Results)
	}
}

func TestVerifyAll_DetectsDrift(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)
	p.InvMassD += 0.001 // simulated corruption on the way to storage
	verifier := setupVerifierStores(t, []*domain.PairCandidate{p})

	report, err := verifier.VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.DivergentPairs != 1 {
		t.Fatalf("DivergentPairs = %d, want 1", report.DivergentPairs)
	}
	result := report.Results[0]
	if result.Match {
		t.Fatal("Result matched despite drifted field")
	}
	found := false
	for _, div := range result.Divergences {
		if div.Field == "InvMassD" {
			found = true
		}
	}
	if !found {
		t.Errorf("Divergences %v missing InvMassD", result.Divergences)
	}
}

func TestVerifyAll_MissingCollision(t *testing.T) {
	ctx := context.Background()

	pairStore := memory.NewPairStore()
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)
	p.CollisionRef = 7 // dangling reference
	if err := pairStore.InsertBulk(ctx, []*domain.PairCandidate{p}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	verifier := NewVerifier(memory.NewCollisionStore(), memory.NewDCandidateStore(), memory.NewV0Store(), pairStore)
	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.DivergentPairs != 1 {
		t.Fatalf("DivergentPairs = %d, want 1", report.DivergentPairs)
	}
	divs := report.Results[0].Divergences
	if len(divs) != 1 || divs[0].Field != "Error" {
		t.Fatalf("Divergences = %v, want one Error entry", divs)
	}
	if divs[0].Actual != ErrCollisionNotFound.Error() {
		t.Errorf("Error = %v, want %q", divs[0].Actual, ErrCollisionNotFound.Error())
	}
}

func TestVerifyCollision_NoPairs(t *testing.T) {
	ctx := context.Background()

	collisionStore := memory.NewCollisionStore()
	if err := collisionStore.Insert(ctx, &domain.ReducedCollision{ID: 3}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	verifier := NewVerifier(collisionStore, memory.NewDCandidateStore(), memory.NewV0Store(), memory.NewPairStore())

	results, err := verifier.VerifyCollision(ctx, 3)
	if err != nil {
		t.Fatalf("VerifyCollision failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Results = %v, want none", results)
	}
}

func TestVerifyPair_SearchesAllCombinations(t *testing.T) {
	d, v0 := testLegs()
	other := *d
	other.ID = 1
	other.InvMass = 1.92
	other.P = domain.Vec3{X: 0.4, Y: -0.9, Z: 1.1}

	// The row was built from the second D; the first is a decoy.
	p := pairFrom(&other, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)

	result := verifyPair(p, 0, []*domain.ReducedDCandidate{d, &other}, []*domain.ReducedV0{v0})
	if !result.Match {
		t.Errorf("Result = %+v, want a match via the second D leg", result)
	}
}

func TestVerifyPair_NoLegs(t *testing.T) {
	d, v0 := testLegs()
	p := pairFrom(d, v0, domain.ChannelDs2StarToDplusK0s, domain.HypK0Short)

	result := verifyPair(p, 0, nil, nil)
	if result.Match {
		t.Fatal("Result matched without any stored legs")
	}
	if len(result.Divergences) != 1 || result.Divergences[0].Field != "Legs" {
		t.Errorf("Divergences = %v, want one Legs entry", result.Divergences)
	}
}
