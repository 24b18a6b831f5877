package domain

// ReducedCollision is the compact collision record, emitted only when at
// least one D candidate in the collision kept a V0 partner.
// Corresponds to reduced_collisions table in PostgreSQL.
type ReducedCollision struct {
	ID     int64      // assigned output row index
	Vertex Vec3       // primary vertex position (cm)
	Cov    [6]float64 // primary vertex covariance, packed lower-triangular
	Flags  uint8      // event selection summary, reserved
}

// ReducedDCandidate is the compact D record, emitted once per D candidate
// that kept at least one V0 partner.
// Corresponds to reduced_d_candidates table in PostgreSQL.
type ReducedDCandidate struct {
	ID              int64    // assigned output row index
	ProngIDs        [3]int64 // global track indices of the daughters
	CollisionRef    int64    // ReducedCollision this record belongs to
	SecondaryVertex Vec3     // decay vertex position (cm)
	InvMass         float64  // variant-specific invariant mass (GeV/c^2)
	P               Vec3     // momentum (GeV/c)
	SignedType      int8     // sign * DKind
}

// ReducedV0 is the compact V0 record, emitted at most once per original V0
// identity per collision, the first time any pairing keeps it.
// Corresponds to reduced_v0s table in PostgreSQL.
type ReducedV0 struct {
	ID             int64           // assigned output row index
	PosTrackID     int64           // positive daughter global track index
	NegTrackID     int64           // negative daughter global track index
	CollisionRef   int64           // ReducedCollision this record belongs to
	DecayVertex    Vec3            // decay vertex position (cm)
	MassK0Short    float64         // invariant mass under the K0s hypothesis (GeV/c^2)
	MassLambda     float64         // invariant mass under the Lambda hypothesis (GeV/c^2)
	MassAntiLambda float64         // invariant mass under the anti-Lambda hypothesis (GeV/c^2)
	P              Vec3            // momentum (GeV/c)
	CosPA          float64         // cosine of the pointing angle to the primary vertex
	DCAToPV        float64         // DCA to the primary vertex (cm)
	Radius         float64         // transverse decay radius (cm)
	SelBits        V0SelectionBits // surviving mass hypotheses
}

// MassUnder returns the record's measured invariant mass under the given
// hypothesis.
func (v *ReducedV0) MassUnder(h V0Hypothesis) float64 {
	switch h {
	case HypK0Short:
		return v.MassK0Short
	case HypLambda:
		return v.MassLambda
	default:
		return v.MassAntiLambda
	}
}

// PairCandidate is one kept (D, V0) combination under one mass hypothesis.
// Distinct pairs are distinct physics candidates and are never deduplicated.
// Corresponds to pair_candidates table in ClickHouse.
type PairCandidate struct {
	CollisionRef int64   // ReducedCollision the pair was built in
	Channel      uint8   // DecayChannel the pair was built for
	InvMass      float64 // combined invariant mass of the two legs (GeV/c^2)
	Pt           float64 // transverse momentum of the combined system (GeV/c)
	InvMassD     float64 // D leg invariant mass (GeV/c^2)
	PtD          float64 // D leg transverse momentum (GeV/c)
	InvMassV0    float64 // V0 leg measured mass under the paired hypothesis (GeV/c^2)
	PtV0         float64 // V0 leg transverse momentum (GeV/c)
	V0CosPA      float64 // V0 cosine of pointing angle
	V0DCAToPV    float64 // V0 DCA to the primary vertex (cm)
	V0Radius     float64 // V0 transverse decay radius (cm)
}
