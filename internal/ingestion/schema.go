package ingestion

import (
	"charm-reso-lab/internal/domain"
)

// CollisionMessage is the wire form of one collision event: the collision
// header plus every candidate reconstructed in it. Sources receive one
// message per collision (one JSON object per line in replay files, one
// WebSocket text frame in streaming mode).
type CollisionMessage struct {
	Collision CollisionHeader `json:"collision"`
	Dplus     []DplusRow      `json:"dplus,omitempty"`
	Dstar     []DstarRow      `json:"dstar,omitempty"`
	V0s       []V0Row         `json:"v0s,omitempty"`
}

// CollisionHeader carries the primary vertex and run identity. The
// covariance matrix is packed lower-triangular: XX, XY, YY, XZ, YZ, ZZ.
type CollisionHeader struct {
	RunNumber int32      `json:"runNumber"`
	PosX      float64    `json:"posX"`
	PosY      float64    `json:"posY"`
	PosZ      float64    `json:"posZ"`
	Cov       [6]float64 `json:"cov"`
}

// DplusRow is one upstream D+ -> pi K pi candidate.
type DplusRow struct {
	PVec     [3]float64 `json:"pVec"`
	SV       [3]float64 `json:"sv"`
	ProngIDs [3]int64   `json:"prongIds"`
	Sign     int8       `json:"sign"`
	InvMass  float64    `json:"invMass"`
	SelFlag  int        `json:"selFlag"`
}

// DstarRow is one upstream D* -> D0 pi candidate. The prong list holds the
// two D0 daughters followed by the soft pion; SVD0 is the D0 decay vertex.
// Both charge hypotheses of the D* and D0 masses are reported, the soft-pion
// sign decides which pair applies.
type DstarRow struct {
	PVec             [3]float64 `json:"pVec"`
	SVD0             [3]float64 `json:"svD0"`
	ProngIDs         [3]int64   `json:"prongIds"`
	SignSoftPi       int8       `json:"signSoftPi"`
	InvMassDstar     float64    `json:"invMassDstar"`
	InvMassAntiDstar float64    `json:"invMassAntiDstar"`
	InvMassD0        float64    `json:"invMassD0"`
	InvMassD0Bar     float64    `json:"invMassD0Bar"`
	SelFlag          int        `json:"selFlag"`
}

// V0Row is one upstream neutral two-track candidate with the quantities the
// selection cascade inspects. GlobalID is the batch-wide V0 identity used
// for deduplication.
type V0Row struct {
	PosTrackID   int64      `json:"posTrackId"`
	NegTrackID   int64      `json:"negTrackId"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Z            float64    `json:"z"`
	PVec         [3]float64 `json:"pVec"`
	MK0Short     float64    `json:"mK0Short"`
	MLambda      float64    `json:"mLambda"`
	MAntiLambda  float64    `json:"mAntiLambda"`
	CosPA        float64    `json:"cosPA"`
	DCAV0ToPV    float64    `json:"dcaV0ToPV"`
	DCADaughters float64    `json:"dcaDaughters"`
	DCAPosToPV   float64    `json:"dcaPosToPV"`
	DCANegToPV   float64    `json:"dcaNegToPV"`
	EtaPos       float64    `json:"etaPos"`
	EtaNeg       float64    `json:"etaNeg"`
	Radius       float64    `json:"radius"`
	GlobalID     int64      `json:"globalId"`
}

func vec3(a [3]float64) domain.Vec3 {
	return domain.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Event decodes the message into a domain collision event. The collision
// index is assigned by the source in arrival order; invariant masses and
// signed types of the D candidates are derived by the domain constructors.
func (m *CollisionMessage) Event(collisionID int64) *domain.CollisionEvent {
	ev := &domain.CollisionEvent{
		Collision: domain.Collision{
			ID:        collisionID,
			RunNumber: m.Collision.RunNumber,
			Vertex:    domain.Vec3{X: m.Collision.PosX, Y: m.Collision.PosY, Z: m.Collision.PosZ},
			Cov:       m.Collision.Cov,
		},
	}

	if len(m.Dplus) > 0 {
		ev.DplusCands = make([]domain.DCandidate, 0, len(m.Dplus))
		for _, row := range m.Dplus {
			ev.DplusCands = append(ev.DplusCands, domain.BuildDplusCandidate(
				collisionID, vec3(row.PVec), vec3(row.SV), row.ProngIDs,
				row.Sign, row.InvMass, row.SelFlag))
		}
	}

	if len(m.Dstar) > 0 {
		ev.DstarCands = make([]domain.DCandidate, 0, len(m.Dstar))
		for _, row := range m.Dstar {
			ev.DstarCands = append(ev.DstarCands, domain.BuildDstarCandidate(
				collisionID, vec3(row.PVec), vec3(row.SVD0), row.ProngIDs,
				row.SignSoftPi, row.InvMassDstar, row.InvMassAntiDstar,
				row.InvMassD0, row.InvMassD0Bar, row.SelFlag != 0))
		}
	}

	if len(m.V0s) > 0 {
		ev.V0s = make([]domain.V0Candidate, 0, len(m.V0s))
		for _, row := range m.V0s {
			ev.V0s = append(ev.V0s, domain.V0Candidate{
				CollisionID:    collisionID,
				GlobalID:       row.GlobalID,
				PosTrackID:     row.PosTrackID,
				NegTrackID:     row.NegTrackID,
				DecayVertex:    domain.Vec3{X: row.X, Y: row.Y, Z: row.Z},
				P:              vec3(row.PVec),
				MassK0Short:    row.MK0Short,
				MassLambda:     row.MLambda,
				MassAntiLambda: row.MAntiLambda,
				CosPA:          row.CosPA,
				DCAToPV:        row.DCAV0ToPV,
				DCADaughters:   row.DCADaughters,
				DCAPosToPV:     row.DCAPosToPV,
				DCANegToPV:     row.DCANegToPV,
				EtaPos:         row.EtaPos,
				EtaNeg:         row.EtaNeg,
				Radius:         row.Radius,
			})
		}
	}

	return ev
}
