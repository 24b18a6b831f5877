// Package selection implements the per-candidate quality cuts. Evaluations
// are pure functions; failing a cut is normal control flow, never an error.
package selection

import (
	"math"

	"charm-reso-lab/internal/domain"
)

// V0Cuts holds the thresholds of the V0 selection cascade.
type V0Cuts struct {
	MaxDauEta        float64 // maximum |eta| of either daughter
	MinRadius        float64 // minimum transverse decay radius (cm)
	MinCosPA         float64 // minimum cosine of pointing angle
	MaxDCAToPV       float64 // maximum V0 DCA to the primary vertex (cm)
	MaxDauDCA        float64 // maximum mutual DCA of the daughters (cm)
	MinDauDCAToPV    float64 // minimum |DCA| of either daughter to the primary vertex (cm)
	DeltaMassK0Short float64 // half-width of the K0s mass window (GeV/c^2)
	DeltaMassLambda  float64 // half-width of the Lambda mass window (GeV/c^2)
}

// DefaultV0Cuts returns the production thresholds.
func DefaultV0Cuts() V0Cuts {
	return V0Cuts{
		MaxDauEta:        1.0,
		MinRadius:        0.5,
		MinCosPA:         0.97,
		MaxDCAToPV:       0.1,
		MaxDauDCA:        1.0,
		MinDauDCAToPV:    0.05,
		DeltaMassK0Short: 0.03,
		DeltaMassLambda:  0.015,
	}
}

// PairCuts holds the D-side thresholds of the pairing scan.
type PairCuts struct {
	DMassWindow float64 // half-width of the window around the channel parent mass (GeV/c^2)
}

// DefaultPairCuts returns the production thresholds.
func DefaultPairCuts() PairCuts {
	return PairCuts{DMassWindow: 0.5}
}

// EvaluateV0 runs the selection cascade for one V0 against one D candidate
// and returns the surviving mass-hypothesis bits. Topological cuts reject
// the candidate outright; the mass windows clear hypotheses independently.
func EvaluateV0(cuts V0Cuts, v0 *domain.V0Candidate, d *domain.DCandidate) domain.V0SelectionBits {
	bits := domain.AllV0Hypotheses
	// A V0 sharing a daughter track with the D would count the same
	// physical track in two roles.
	if d.SharesTrack(v0.PosTrackID) || d.SharesTrack(v0.NegTrackID) {
		return 0
	}
	if math.Abs(v0.EtaNeg) > cuts.MaxDauEta || math.Abs(v0.EtaPos) > cuts.MaxDauEta {
		return 0
	}
	if v0.Radius < cuts.MinRadius {
		return 0
	}
	if v0.CosPA < cuts.MinCosPA {
		return 0
	}
	// DCA block discriminating primary decays
	if v0.DCAToPV > cuts.MaxDCAToPV || v0.DCADaughters > cuts.MaxDauDCA ||
		math.Abs(v0.DCAPosToPV) < cuts.MinDauDCAToPV || math.Abs(v0.DCANegToPV) < cuts.MinDauDCAToPV {
		return 0
	}
	// mass hypotheses; anti-Lambda shares the Lambda nominal mass
	if math.Abs(v0.MassK0Short-domain.MassK0Short) > cuts.DeltaMassK0Short {
		bits.Clear(domain.HypK0Short)
	}
	if math.Abs(v0.MassLambda-domain.MassLambda) > cuts.DeltaMassLambda {
		bits.Clear(domain.HypLambda)
	}
	if math.Abs(v0.MassAntiLambda-domain.MassLambda) > cuts.DeltaMassLambda {
		bits.Clear(domain.HypAntiLambda)
	}
	return bits
}

// EvaluateD reports whether a D candidate's invariant mass is compatible
// with the channel's parent mass. The window boundary is inclusive.
func EvaluateD(cuts PairCuts, d *domain.DCandidate, ch domain.DecayChannel) bool {
	return math.Abs(d.InvMass-ch.ParentMass()) <= cuts.DMassWindow
}
