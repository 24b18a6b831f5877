package domain

// DKind identifies the heavy-flavour decay variant of a D candidate.
type DKind int8

const (
	DKindDplus DKind = 1 // D+ -> pi K pi
	DKindDstar DKind = 2 // D* -> D0 pi (soft pion)
)

// String returns the string representation of DKind.
func (k DKind) String() string {
	switch k {
	case DKindDplus:
		return "Dplus"
	case DKindDstar:
		return "Dstar"
	default:
		return "Unknown"
	}
}

// IsValid checks if the kind is a known decay variant.
func (k DKind) IsValid() bool {
	return k == DKindDplus || k == DKindDstar
}

// DCandidate represents a heavy-flavour candidate entering the pairing scan.
// InvMass is variant-specific: the three-prong mass for D+, the soft-pion
// corrected mass difference m(D*) - m(D0) for D*. SignedType is
// sign * Kind, negative for the charge-conjugate state.
type DCandidate struct {
	CollisionID     int64    // owning collision index
	Kind            DKind    // decay variant
	P               Vec3     // candidate momentum (GeV/c)
	SecondaryVertex Vec3     // decay vertex position (cm)
	ProngIDs        [3]int64 // global track indices of the daughters
	InvMass         float64  // variant-specific invariant mass (GeV/c^2)
	SignedType      int8     // sign * Kind
	SelDplus        int      // upstream D+ -> pi K pi selection score
	SelDstar        bool     // upstream D* -> D0 pi selection decision
}

// SharesTrack reports whether any of the candidate's daughters matches the
// given global track index.
func (d *DCandidate) SharesTrack(trackID int64) bool {
	return d.ProngIDs[0] == trackID || d.ProngIDs[1] == trackID || d.ProngIDs[2] == trackID
}

// BuildDplusCandidate assembles a three-prong D+ candidate from upstream
// reconstruction values. The signed type is sign * DKindDplus, negative for
// the D- conjugate.
func BuildDplusCandidate(collisionID int64, p, secondaryVertex Vec3, prongIDs [3]int64, sign int8, invMass float64, selFlag int) DCandidate {
	return DCandidate{
		CollisionID:     collisionID,
		Kind:            DKindDplus,
		P:               p,
		SecondaryVertex: secondaryVertex,
		ProngIDs:        prongIDs,
		InvMass:         invMass,
		SignedType:      sign * int8(DKindDplus),
		SelDplus:        selFlag,
	}
}

// BuildDstarCandidate assembles a soft-pion D* candidate. Upstream reports
// the D* and D0 masses under both charge hypotheses; the soft-pion charge
// picks which pair applies, and the stored invariant mass is the
// soft-pion-corrected difference m(D*) - m(D0). The signed type is
// signSoftPi * DKindDstar. The secondary vertex is that of the D0 daughter.
func BuildDstarCandidate(collisionID int64, p, secondaryVertexD0 Vec3, prongIDs [3]int64, signSoftPi int8, massDstar, massAntiDstar, massD0, massD0Bar float64, selected bool) DCandidate {
	invMass := massDstar - massD0
	if signSoftPi <= 0 {
		invMass = massAntiDstar - massD0Bar
	}
	return DCandidate{
		CollisionID:     collisionID,
		Kind:            DKindDstar,
		P:               p,
		SecondaryVertex: secondaryVertexD0,
		ProngIDs:        prongIDs,
		InvMass:         invMass,
		SignedType:      signSoftPi * int8(DKindDstar),
		SelDstar:        selected,
	}
}
