package domain

// V0Hypothesis enumerates the mass hypotheses evaluated for a V0 candidate.
type V0Hypothesis uint8

const (
	HypK0Short V0Hypothesis = iota
	HypLambda
	HypAntiLambda
)

// String returns the string representation of V0Hypothesis.
func (h V0Hypothesis) String() string {
	switch h {
	case HypK0Short:
		return "K0Short"
	case HypLambda:
		return "Lambda"
	case HypAntiLambda:
		return "AntiLambda"
	default:
		return "Unknown"
	}
}

// NominalMass returns the PDG mass of the hypothesis particle. Lambda and
// anti-Lambda share the same nominal mass.
func (h V0Hypothesis) NominalMass() float64 {
	if h == HypK0Short {
		return MassK0Short
	}
	return MassLambda
}

// V0SelectionBits is a bitset over V0Hypothesis values. Zero means the
// candidate is rejected entirely; set bits mark the hypotheses still viable.
type V0SelectionBits uint8

// AllV0Hypotheses has every hypothesis bit set, the starting point of the
// selection cascade.
const AllV0Hypotheses V0SelectionBits = 1<<HypK0Short | 1<<HypLambda | 1<<HypAntiLambda

// Has reports whether the hypothesis bit is set.
func (b V0SelectionBits) Has(h V0Hypothesis) bool {
	return b&(1<<h) != 0
}

// Set marks the hypothesis as viable.
func (b *V0SelectionBits) Set(h V0Hypothesis) {
	*b |= 1 << h
}

// Clear drops the hypothesis.
func (b *V0SelectionBits) Clear(h V0Hypothesis) {
	*b &^= 1 << h
}

// Empty reports whether no hypothesis survived.
func (b V0SelectionBits) Empty() bool {
	return b == 0
}

// V0Candidate represents a neutral two-track weak-decay candidate together
// with the quantities the selection cuts inspect.
type V0Candidate struct {
	CollisionID    int64   // owning collision index
	GlobalID       int64   // batch-wide V0 identity, the deduplication key
	PosTrackID     int64   // positive daughter global track index
	NegTrackID     int64   // negative daughter global track index
	DecayVertex    Vec3    // decay vertex position (cm)
	P              Vec3    // momentum (GeV/c)
	MassK0Short    float64 // invariant mass under the K0s hypothesis (GeV/c^2)
	MassLambda     float64 // invariant mass under the Lambda hypothesis (GeV/c^2)
	MassAntiLambda float64 // invariant mass under the anti-Lambda hypothesis (GeV/c^2)
	CosPA          float64 // cosine of the pointing angle to the primary vertex
	DCAToPV        float64 // DCA of the V0 to the primary vertex (cm)
	DCADaughters   float64 // mutual DCA of the two daughters (cm)
	DCAPosToPV     float64 // DCA of the positive daughter to the primary vertex (cm)
	DCANegToPV     float64 // DCA of the negative daughter to the primary vertex (cm)
	EtaPos         float64 // positive daughter pseudorapidity
	EtaNeg         float64 // negative daughter pseudorapidity
	Radius         float64 // transverse decay radius (cm)
}

// MassUnder returns the candidate's measured invariant mass under the given
// hypothesis.
func (v *V0Candidate) MassUnder(h V0Hypothesis) float64 {
	switch h {
	case HypK0Short:
		return v.MassK0Short
	case HypLambda:
		return v.MassLambda
	default:
		return v.MassAntiLambda
	}
}
