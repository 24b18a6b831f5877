package pairing

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
	"charm-reso-lab/internal/selection"
)

func newTestEngine(t *testing.T, ch domain.DecayChannel, obs Observer) *Engine {
	t.Helper()
	eng, err := NewEngine(Config{
		Channel:  ch,
		V0Cuts:   selection.DefaultV0Cuts(),
		PairCuts: selection.DefaultPairCuts(),
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}

func testCollision(id int64) domain.Collision {
	return domain.Collision{
		ID:        id,
		RunNumber: 529691,
		Vertex:    domain.Vec3{X: 0.01, Y: -0.02, Z: 2.3},
		Cov:       [6]float64{1e-5, 0, 1e-5, 0, 0, 4e-4},
	}
}

// k0sOnlyV0 survives every cut with exactly the K0s hypothesis viable.
func k0sOnlyV0(globalID int64) domain.V0Candidate {
	return domain.V0Candidate{
		GlobalID:       globalID,
		PosTrackID:     1000 + 2*globalID,
		NegTrackID:     1001 + 2*globalID,
		DecayVertex:    domain.Vec3{X: 1.2, Y: 0.8, Z: 3.0},
		P:              domain.Vec3{X: 0.4, Y: 0.1, Z: 0.2},
		MassK0Short:    domain.MassK0Short + 0.001,
		MassLambda:     1.30,
		MassAntiLambda: 1.30,
		CosPA:          0.999,
		DCAToPV:        0.05,
		DCADaughters:   0.3,
		DCAPosToPV:     0.2,
		DCANegToPV:     -0.2,
		EtaPos:         0.4,
		EtaNeg:         -0.6,
		Radius:         1.9,
	}
}

func nominalDplus(prongs [3]int64, sign int8) domain.DCandidate {
	return domain.BuildDplusCandidate(0,
		domain.Vec3{X: 1.0, Y: 0.5, Z: 0.2},
		domain.Vec3{X: 0.05, Y: 0.02, Z: 2.4},
		prongs, sign, domain.MassDPlus, 3)
}

func TestNewEngine_InvalidChannel(t *testing.T) {
	if _, err := NewEngine(Config{Channel: 0}); err == nil {
		t.Fatal("expected error for invalid channel")
	}
}

func TestProcessCollision_EmptyInput(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0), nil, nil)
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if res.Collision != nil {
		t.Error("expected no collision record for empty input")
	}
	if len(res.DCands) != 0 || len(res.V0s) != 0 || len(res.Pairs) != 0 {
		t.Errorf("expected empty result, got %d D, %d V0, %d pairs",
			len(res.DCands), len(res.V0s), len(res.Pairs))
	}
}

func TestProcessCollision_SingleMatch(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)
	refs := TableRefs{NextCollision: 5, NextD: 10, NextV0: 20}

	col := testCollision(0)
	d := nominalDplus([3]int64{11, 12, 13}, 1)
	v0 := k0sOnlyV0(500)

	res, err := eng.ProcessCollision(nil, refs, col, []domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	if res.Collision == nil {
		t.Fatal("expected a collision record")
	}
	if res.Collision.ID != 5 {
		t.Errorf("collision ID = %d, want 5", res.Collision.ID)
	}
	if res.Collision.Vertex != col.Vertex || res.Collision.Cov != col.Cov {
		t.Error("collision vertex not copied from input")
	}

	if len(res.DCands) != 1 {
		t.Fatalf("got %d D rows, want 1", len(res.DCands))
	}
	dRow := res.DCands[0]
	if dRow.ID != 10 || dRow.CollisionRef != 5 {
		t.Errorf("D row refs = (%d, %d), want (10, 5)", dRow.ID, dRow.CollisionRef)
	}
	if dRow.ProngIDs != d.ProngIDs || dRow.InvMass != d.InvMass || dRow.SignedType != 1 {
		t.Errorf("D row fields not copied: %+v", dRow)
	}

	if len(res.V0s) != 1 {
		t.Fatalf("got %d V0 rows, want 1", len(res.V0s))
	}
	v0Row := res.V0s[0]
	if v0Row.ID != 20 || v0Row.CollisionRef != 5 {
		t.Errorf("V0 row refs = (%d, %d), want (20, 5)", v0Row.ID, v0Row.CollisionRef)
	}
	if v0Row.SelBits != 1<<domain.HypK0Short {
		t.Errorf("V0 SelBits = %08b, want K0s only", v0Row.SelBits)
	}
	if v0Row.MassK0Short != v0.MassK0Short || v0Row.DCAToPV != v0.DCAToPV {
		t.Errorf("V0 row fields not copied: %+v", v0Row)
	}

	if len(res.Pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(res.Pairs))
	}
	pair := res.Pairs[0]
	wantMass := kinematics.InvariantMass(d.P, v0.P, domain.MassDPlus, domain.MassK0Short)
	wantPt := kinematics.Pt(kinematics.Add(d.P, v0.P))
	if pair.CollisionRef != 5 || pair.Channel != uint8(domain.ChannelDs2StarToDplusK0s) {
		t.Errorf("pair refs = (%d, %d), want (5, %d)", pair.CollisionRef, pair.Channel, domain.ChannelDs2StarToDplusK0s)
	}
	if pair.InvMass != wantMass || pair.Pt != wantPt {
		t.Errorf("pair kinematics = (%v, %v), want (%v, %v)", pair.InvMass, pair.Pt, wantMass, wantPt)
	}
	if pair.InvMassD != d.InvMass || pair.PtD != kinematics.Pt(d.P) {
		t.Errorf("pair D leg = (%v, %v), want measured values", pair.InvMassD, pair.PtD)
	}
	if pair.InvMassV0 != v0.MassK0Short || pair.PtV0 != kinematics.Pt(v0.P) {
		t.Errorf("pair V0 leg = (%v, %v), want measured values", pair.InvMassV0, pair.PtV0)
	}
	if pair.V0CosPA != v0.CosPA || pair.V0DCAToPV != v0.DCAToPV || pair.V0Radius != v0.Radius {
		t.Errorf("pair V0 topology not copied: %+v", pair)
	}
}

func TestProcessCollision_NoPartialRecords(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	// D outside its mass window: the V0 alone must not produce output.
	d := nominalDplus([3]int64{11, 12, 13}, 1)
	d.InvMass = domain.MassDPlus + 0.6
	v0 := k0sOnlyV0(500)

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0), []domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if res.Collision != nil || len(res.DCands) != 0 || len(res.V0s) != 0 || len(res.Pairs) != 0 {
		t.Errorf("expected empty result for gated D, got %+v", res)
	}

	// Good D, V0 failing a topological cut: same outcome.
	d = nominalDplus([3]int64{11, 12, 13}, 1)
	v0 = k0sOnlyV0(500)
	v0.CosPA = 0.9

	res, err = eng.ProcessCollision(nil, TableRefs{}, testCollision(1), []domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if res.Collision != nil || len(res.DCands) != 0 || len(res.V0s) != 0 || len(res.Pairs) != 0 {
		t.Errorf("expected empty result for gated V0, got %+v", res)
	}
}

func TestProcessCollision_V0DedupAcrossDs(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	d1 := nominalDplus([3]int64{11, 12, 13}, 1)
	d2 := nominalDplus([3]int64{21, 22, 23}, -1)
	v0 := k0sOnlyV0(500)

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{d1, d2}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	if len(res.V0s) != 1 {
		t.Errorf("got %d V0 rows, want 1: the same identity pairs with both Ds", len(res.V0s))
	}
	if len(res.DCands) != 2 {
		t.Errorf("got %d D rows, want 2", len(res.DCands))
	}
	if len(res.Pairs) != 2 {
		t.Errorf("got %d pairs, want 2", len(res.Pairs))
	}
	if res.DCands[0].ID != 0 || res.DCands[1].ID != 1 {
		t.Errorf("D row IDs = (%d, %d), want (0, 1)", res.DCands[0].ID, res.DCands[1].ID)
	}
}

func TestProcessCollision_DedupIsCollisionScoped(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	d := nominalDplus([3]int64{11, 12, 13}, 1)
	v0 := k0sOnlyV0(500)
	refs := TableRefs{}

	first, err := eng.ProcessCollision(nil, refs, testCollision(0), []domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	refs = first.Advance(refs)

	second, err := eng.ProcessCollision(nil, refs, testCollision(1), []domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	// The identity deduplicates within a collision, never across them.
	if len(first.V0s) != 1 || len(second.V0s) != 1 {
		t.Fatalf("got %d and %d V0 rows, want 1 each", len(first.V0s), len(second.V0s))
	}
	if second.V0s[0].ID != 1 || second.V0s[0].CollisionRef != 1 {
		t.Errorf("second V0 row refs = (%d, %d), want (1, 1)",
			second.V0s[0].ID, second.V0s[0].CollisionRef)
	}
}

func TestProcessCollision_SharedTrackVetoIsPerD(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	d1 := nominalDplus([3]int64{11, 12, 13}, 1)
	d2 := nominalDplus([3]int64{21, 22, 23}, 1)
	v0 := k0sOnlyV0(500)
	v0.PosTrackID = 11 // daughter of d1

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{d1, d2}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	// The veto bars the V0 from d1 only; pairing with d2 goes through.
	if len(res.DCands) != 1 || res.DCands[0].ProngIDs != d2.ProngIDs {
		t.Fatalf("expected only the non-overlapping D kept, got %+v", res.DCands)
	}
	if len(res.V0s) != 1 || len(res.Pairs) != 1 {
		t.Errorf("got %d V0 rows and %d pairs, want 1 each", len(res.V0s), len(res.Pairs))
	}
}

func TestProcessCollision_DMassWindowBoundary(t *testing.T) {
	atBoundary := nominalDplus([3]int64{11, 12, 13}, 1)
	atBoundary.InvMass = domain.MassDPlus + 0.5
	justOutside := nominalDplus([3]int64{21, 22, 23}, 1)
	justOutside.InvMass = math.Nextafter(atBoundary.InvMass, 4)

	// The window is the exact distance of the first candidate, so the
	// inclusive boundary is hit without rounding slack.
	eng, err := NewEngine(Config{
		Channel:  domain.ChannelDs2StarToDplusK0s,
		V0Cuts:   selection.DefaultV0Cuts(),
		PairCuts: selection.PairCuts{DMassWindow: atBoundary.InvMass - domain.MassDPlus},
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{atBoundary, justOutside}, []domain.V0Candidate{k0sOnlyV0(500)})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	if len(res.DCands) != 1 {
		t.Fatalf("got %d D rows, want 1: window is inclusive at the boundary", len(res.DCands))
	}
	if res.DCands[0].InvMass != atBoundary.InvMass {
		t.Errorf("kept D mass = %v, want the boundary candidate", res.DCands[0].InvMass)
	}
}

func TestProcessCollision_OnlyRelevantHypothesesPair(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	// All three hypotheses viable: rows keep the full mask, pairs are built
	// for the channel-relevant K0s interpretation only.
	v0 := k0sOnlyV0(500)
	v0.MassLambda = domain.MassLambda
	v0.MassAntiLambda = domain.MassLambda

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{nominalDplus([3]int64{11, 12, 13}, 1)}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if len(res.V0s) != 1 || res.V0s[0].SelBits != domain.AllV0Hypotheses {
		t.Fatalf("V0 rows = %+v, want one row with the full mask", res.V0s)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].InvMassV0 != v0.MassK0Short {
		t.Errorf("pairs = %+v, want one K0s pair", res.Pairs)
	}

	// A Lambda-only V0 under a K0s channel still yields D and V0 rows, with
	// no pair row for the irrelevant hypothesis.
	lambdaOnly := k0sOnlyV0(501)
	lambdaOnly.MassK0Short = 0.60
	lambdaOnly.MassLambda = domain.MassLambda
	lambdaOnly.MassAntiLambda = 1.30

	res, err = eng.ProcessCollision(nil, TableRefs{}, testCollision(1),
		[]domain.DCandidate{nominalDplus([3]int64{11, 12, 13}, 1)}, []domain.V0Candidate{lambdaOnly})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if res.Collision == nil || len(res.DCands) != 1 || len(res.V0s) != 1 {
		t.Fatalf("expected kept records for an accepted V0, got %+v", res)
	}
	if len(res.Pairs) != 0 {
		t.Errorf("got %d pairs, want 0 for an irrelevant hypothesis", len(res.Pairs))
	}
}

func TestProcessCollision_LambdaDispatchBySign(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelXcResToDplusLambda, nil)

	v0 := k0sOnlyV0(500)
	v0.MassK0Short = 0.60 // out of window
	v0.MassLambda = domain.MassLambda + 0.001
	v0.MassAntiLambda = domain.MassLambda - 0.002

	dPlus := nominalDplus([3]int64{11, 12, 13}, 1)
	dMinus := nominalDplus([3]int64{21, 22, 23}, -1)
	dMinus.P = domain.Vec3{X: 0.8, Y: -0.4, Z: 1.1}

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{dPlus, dMinus}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(res.Pairs))
	}

	// Positive signed type reads the Lambda mass, negative the anti-Lambda.
	if res.Pairs[0].InvMassV0 != v0.MassLambda {
		t.Errorf("D+ pair V0 mass = %v, want the Lambda value %v", res.Pairs[0].InvMassV0, v0.MassLambda)
	}
	if res.Pairs[1].InvMassV0 != v0.MassAntiLambda {
		t.Errorf("D- pair V0 mass = %v, want the anti-Lambda value %v", res.Pairs[1].InvMassV0, v0.MassAntiLambda)
	}

	// Both interpretations combine with the same nominal Lambda mass.
	wantPlus := kinematics.InvariantMass(dPlus.P, v0.P, domain.MassDPlus, domain.MassLambda)
	if res.Pairs[0].InvMass != wantPlus {
		t.Errorf("D+ pair mass = %v, want %v", res.Pairs[0].InvMass, wantPlus)
	}
}

func TestProcessCollision_BackToBackRoundTrip(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	d := nominalDplus([3]int64{11, 12, 13}, 1)
	d.P = domain.Vec3{X: 1, Y: 0, Z: 0}
	v0 := k0sOnlyV0(500)
	v0.P = domain.Vec3{X: -1, Y: 0, Z: 0}

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{d}, []domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(res.Pairs))
	}

	// Back-to-back unit momenta: the pair is at rest transversally and the
	// mass collapses to the energy sum.
	wantMass := math.Sqrt(1+domain.MassDPlus*domain.MassDPlus) +
		math.Sqrt(1+domain.MassK0Short*domain.MassK0Short)
	if diff := math.Abs(res.Pairs[0].InvMass - wantMass); diff > 1e-12 {
		t.Errorf("pair mass = %v, want %v (diff %g)", res.Pairs[0].InvMass, wantMass, diff)
	}
	if res.Pairs[0].Pt != 0 {
		t.Errorf("pair pt = %v, want 0", res.Pairs[0].Pt)
	}
}

func TestProcessCollision_DeterministicOrdering(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	d1 := nominalDplus([3]int64{11, 12, 13}, 1)
	d2 := nominalDplus([3]int64{21, 22, 23}, -1)
	v0a := k0sOnlyV0(500)
	v0b := k0sOnlyV0(501)
	v0b.P = domain.Vec3{X: 1.5, Y: 0.2, Z: 0.4}

	run := func() *Result {
		res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
			[]domain.DCandidate{d1, d2}, []domain.V0Candidate{v0a, v0b})
		if err != nil {
			t.Fatalf("ProcessCollision failed: %v", err)
		}
		return res
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input produced different output")
	}

	// Pairs follow the D-major input order.
	if len(first.Pairs) != 4 {
		t.Fatalf("got %d pairs, want 4", len(first.Pairs))
	}
	wantPtV0 := []float64{
		kinematics.Pt(v0a.P), kinematics.Pt(v0b.P),
		kinematics.Pt(v0a.P), kinematics.Pt(v0b.P),
	}
	for i, want := range wantPtV0 {
		if first.Pairs[i].PtV0 != want {
			t.Errorf("pair[%d].PtV0 = %v, want %v", i, first.Pairs[i].PtV0, want)
		}
	}
}

func TestResult_AdvanceAndRebase(t *testing.T) {
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, nil)

	res, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{nominalDplus([3]int64{11, 12, 13}, 1)},
		[]domain.V0Candidate{k0sOnlyV0(500)})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	refs := TableRefs{NextCollision: 3, NextD: 7, NextV0: 9}
	res.Rebase(refs)

	if res.Collision.ID != 3 {
		t.Errorf("collision ID = %d, want 3", res.Collision.ID)
	}
	if res.DCands[0].ID != 7 || res.DCands[0].CollisionRef != 3 {
		t.Errorf("D row refs = (%d, %d), want (7, 3)", res.DCands[0].ID, res.DCands[0].CollisionRef)
	}
	if res.V0s[0].ID != 9 || res.V0s[0].CollisionRef != 3 {
		t.Errorf("V0 row refs = (%d, %d), want (9, 3)", res.V0s[0].ID, res.V0s[0].CollisionRef)
	}
	if res.Pairs[0].CollisionRef != 3 {
		t.Errorf("pair ref = %d, want 3", res.Pairs[0].CollisionRef)
	}

	next := res.Advance(refs)
	want := TableRefs{NextCollision: 4, NextD: 8, NextV0: 10}
	if next != want {
		t.Errorf("advanced refs = %+v, want %+v", next, want)
	}

	// A rejected collision advances nothing.
	empty, err := eng.ProcessCollision(nil, refs, testCollision(1), nil, nil)
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if got := empty.Advance(refs); got != refs {
		t.Errorf("advanced refs = %+v, want unchanged %+v", got, refs)
	}
}

func TestProcessCollision_PropagationRequiresFieldContext(t *testing.T) {
	eng, err := NewEngine(Config{
		Channel:     domain.ChannelDs2StarToDplusK0s,
		V0Cuts:      selection.DefaultV0Cuts(),
		PairCuts:    selection.DefaultPairCuts(),
		PropagateV0: true,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	_, err = eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{nominalDplus([3]int64{11, 12, 13}, 1)},
		[]domain.V0Candidate{k0sOnlyV0(500)})
	if !errors.Is(err, calib.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestProcessCollision_PropagationRecomputesDCA(t *testing.T) {
	eng, err := NewEngine(Config{
		Channel:     domain.ChannelDs2StarToDplusK0s,
		V0Cuts:      selection.DefaultV0Cuts(),
		PairCuts:    selection.DefaultPairCuts(),
		PropagateV0: true,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	fld := &calib.FieldContext{RunNumber: 529691, Bz: -5.0}
	col := testCollision(0)
	v0 := k0sOnlyV0(500)

	res, err := eng.ProcessCollision(fld, TableRefs{}, col,
		[]domain.DCandidate{nominalDplus([3]int64{11, 12, 13}, 1)},
		[]domain.V0Candidate{v0})
	if err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if len(res.Pairs) != 1 || len(res.V0s) != 1 {
		t.Fatalf("got %d pairs and %d V0 rows, want 1 each", len(res.Pairs), len(res.V0s))
	}

	want := fld.NeutralDCAToPV(v0.DecayVertex, v0.P, col.Vertex)
	if want == v0.DCAToPV {
		t.Fatal("fixture must give a recomputed DCA different from the stored one")
	}
	if res.Pairs[0].V0DCAToPV != want {
		t.Errorf("pair DCA = %v, want propagated %v", res.Pairs[0].V0DCAToPV, want)
	}
	if res.V0s[0].DCAToPV != want {
		t.Errorf("V0 row DCA = %v, want propagated %v", res.V0s[0].DCAToPV, want)
	}
}

// countingObserver tallies every observation.
type countingObserver struct {
	steps    [NumSelectionSteps]int
	v0s      int
	v0Masses int
	pairs    int
	dcands   int
}

func (c *countingObserver) RecordSelectionStep(step SelectionStep) { c.steps[step]++ }
func (c *countingObserver) RecordDCandidate(domain.DecayChannel, int8, float64, float64) {
	c.dcands++
}
func (c *countingObserver) RecordV0(domain.V0SelectionBits, float64) { c.v0s++ }
func (c *countingObserver) RecordV0Mass(domain.V0Hypothesis, float64) { c.v0Masses++ }
func (c *countingObserver) RecordPairMass(domain.DecayChannel, float64, float64) {
	c.pairs++
}

func TestProcessCollision_ObserverCardinality(t *testing.T) {
	obs := &countingObserver{}
	eng := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, obs)

	d1 := nominalDplus([3]int64{11, 12, 13}, 1)
	d2 := nominalDplus([3]int64{21, 22, 23}, -1)
	v0 := k0sOnlyV0(500)

	if _, err := eng.ProcessCollision(nil, TableRefs{}, testCollision(0),
		[]domain.DCandidate{d1, d2}, []domain.V0Candidate{v0}); err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}

	if obs.steps[StepCollisionProcessed] != 1 || obs.steps[StepCollisionSelected] != 1 || obs.steps[StepCollisionRejected] != 0 {
		t.Errorf("steps = %v, want processed and selected once", obs.steps)
	}
	// One observation per accepted (D, V0) evaluation, not per identity.
	if obs.v0s != 2 || obs.v0Masses != 2 {
		t.Errorf("v0 observations = (%d, %d), want (2, 2)", obs.v0s, obs.v0Masses)
	}
	if obs.pairs != 2 || obs.dcands != 2 {
		t.Errorf("pair/D observations = (%d, %d), want (2, 2)", obs.pairs, obs.dcands)
	}

	// A collision with nothing kept counts processed and rejected.
	obs2 := &countingObserver{}
	eng2 := newTestEngine(t, domain.ChannelDs2StarToDplusK0s, obs2)
	if _, err := eng2.ProcessCollision(nil, TableRefs{}, testCollision(1), nil, nil); err != nil {
		t.Fatalf("ProcessCollision failed: %v", err)
	}
	if obs2.steps[StepCollisionProcessed] != 1 || obs2.steps[StepCollisionRejected] != 1 {
		t.Errorf("steps = %v, want processed and rejected once", obs2.steps)
	}
}
