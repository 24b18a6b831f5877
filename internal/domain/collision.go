package domain

// Collision represents one reconstructed primary interaction.
// The covariance matrix is packed lower-triangular: XX, XY, YY, XZ, YZ, ZZ.
type Collision struct {
	ID        int64      // global collision index within the input batch
	RunNumber int32      // data-taking run this collision belongs to
	Vertex    Vec3       // primary vertex position (cm)
	Cov       [6]float64 // primary vertex covariance, packed lower-triangular
}

// CollisionEvent bundles a collision with every candidate reconstructed in
// it. It is the unit of work handed to the pairing engine.
type CollisionEvent struct {
	Collision  Collision
	DplusCands []DCandidate // three-prong D+ candidates
	DstarCands []DCandidate // soft-pion D* candidates
	V0s        []V0Candidate
}

// CandidatesFor returns the candidate slice matching the requested D variant.
func (e *CollisionEvent) CandidatesFor(kind DKind) []DCandidate {
	if kind == DKindDstar {
		return e.DstarCands
	}
	return e.DplusCands
}
