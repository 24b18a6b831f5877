// Package pairing implements the combinatorial D-V0 scan: per collision it
// gates D candidates on their mass window, evaluates every V0 against every
// surviving D, builds pair candidates for the channel-relevant mass
// hypotheses and emits deduplicated, cross-referencing reduced records.
package pairing

import (
	"fmt"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
	"charm-reso-lab/internal/selection"
)

// hypotheses fixes the evaluation order of the mass hypotheses so output is
// deterministic for a given input order.
var hypotheses = [...]domain.V0Hypothesis{domain.HypK0Short, domain.HypLambda, domain.HypAntiLambda}

// TableRefs carries the next free row indices of the three reduced tables.
// The engine assigns IDs from it in input order; the caller owns advancing
// it between collisions.
type TableRefs struct {
	NextCollision int64
	NextD         int64
	NextV0        int64
}

// Result is the reduced output of one collision pass. Collision is nil when
// nothing in the collision was kept, and in that case every slice is empty
// too: partial records are never produced.
type Result struct {
	Collision *domain.ReducedCollision
	DCands    []domain.ReducedDCandidate
	V0s       []domain.ReducedV0
	Pairs     []domain.PairCandidate
}

// Advance returns the table cursors moved past this result's rows.
func (r *Result) Advance(refs TableRefs) TableRefs {
	if r.Collision != nil {
		refs.NextCollision++
	}
	refs.NextD += int64(len(r.DCands))
	refs.NextV0 += int64(len(r.V0s))
	return refs
}

// Rebase shifts every assigned row index and cross-reference by the given
// table offsets. Parallel runs stage results with zero-based local indices
// and stitch them onto the global tables in input order.
func (r *Result) Rebase(refs TableRefs) {
	if r.Collision != nil {
		r.Collision.ID += refs.NextCollision
	}
	for i := range r.DCands {
		r.DCands[i].ID += refs.NextD
		r.DCands[i].CollisionRef += refs.NextCollision
	}
	for i := range r.V0s {
		r.V0s[i].ID += refs.NextV0
		r.V0s[i].CollisionRef += refs.NextCollision
	}
	for i := range r.Pairs {
		r.Pairs[i].CollisionRef += refs.NextCollision
	}
}

// Config bundles the engine parameters.
type Config struct {
	Channel     domain.DecayChannel
	V0Cuts      selection.V0Cuts
	PairCuts    selection.PairCuts
	PropagateV0 bool     // recompute the V0 PV distance from the neutral straight-line trajectory
	Observer    Observer // nil means no QA observations
}

// Engine runs the pairing scan for one fixed decay channel. It holds no
// per-collision state, so a single Engine may process collisions
// concurrently as long as the attached Observer tolerates it.
type Engine struct {
	channel     domain.DecayChannel
	v0Cuts      selection.V0Cuts
	pairCuts    selection.PairCuts
	propagateV0 bool
	obs         Observer
}

// NewEngine creates a pairing engine for the configured channel.
func NewEngine(cfg Config) (*Engine, error) {
	if !cfg.Channel.IsValid() {
		return nil, fmt.Errorf("invalid decay channel %d", cfg.Channel)
	}
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{
		channel:     cfg.Channel,
		v0Cuts:      cfg.V0Cuts,
		pairCuts:    cfg.PairCuts,
		propagateV0: cfg.PropagateV0,
		obs:         obs,
	}, nil
}

// Channel returns the decay channel the engine was built for.
func (e *Engine) Channel() domain.DecayChannel {
	return e.channel
}

// ProcessCollision scans the D x V0 cross product of one collision and
// returns the reduced records. IDs are assigned from refs in input order.
// Emission is conditional end to end: a V0 row is written at most once per
// identity, a D row only when at least one V0 was kept against it, the
// collision row only when at least one D row exists. fld is required only
// when V0 propagation is enabled.
func (e *Engine) ProcessCollision(fld *calib.FieldContext, refs TableRefs, col domain.Collision, dCands []domain.DCandidate, v0s []domain.V0Candidate) (*Result, error) {
	if e.propagateV0 && fld == nil {
		return nil, fmt.Errorf("collision %d: propagation requested without field context: %w", col.ID, calib.ErrUnavailable)
	}

	collisionRef := refs.NextCollision
	dedup := newDedupIndex(refs.NextV0)
	res := &Result{}

	e.obs.RecordSelectionStep(StepCollisionProcessed)

	for di := range dCands {
		d := &dCands[di]
		if !selection.EvaluateD(e.pairCuts, d, e.channel) {
			continue
		}
		ptD := kinematics.Pt(d.P)
		dKept := false

		// Each V0 is evaluated fresh against this D: a veto against one D
		// never bars the V0 from pairing with another.
		for vi := range v0s {
			v0 := &v0s[vi]
			bits := selection.EvaluateV0(e.v0Cuts, v0, d)
			if bits.Empty() {
				continue
			}

			dcaToPV := v0.DCAToPV
			if e.propagateV0 {
				// Neutral propagation leaves the momentum untouched; only
				// the PV distance is recomputed on the straight line.
				dcaToPV = fld.NeutralDCAToPV(v0.DecayVertex, v0.P, col.Vertex)
			}

			ptV0 := kinematics.Pt(v0.P)
			e.obs.RecordV0(bits, ptV0)

			relevant := bits & e.channel.RelevantHypotheses(d.SignedType)
			for _, hyp := range hypotheses {
				if !bits.Has(hyp) {
					continue
				}
				e.obs.RecordV0Mass(hyp, v0.MassUnder(hyp))
				if !relevant.Has(hyp) {
					continue
				}

				pairMass := kinematics.InvariantMass(d.P, v0.P, e.channel.ParentMass(), hyp.NominalMass())
				pairPt := kinematics.Pt(kinematics.Add(d.P, v0.P))
				e.obs.RecordPairMass(e.channel, pairMass-d.InvMass, pairPt)

				res.Pairs = append(res.Pairs, domain.PairCandidate{
					CollisionRef: collisionRef,
					Channel:      uint8(e.channel),
					InvMass:      pairMass,
					Pt:           pairPt,
					InvMassD:     d.InvMass,
					PtD:          ptD,
					InvMassV0:    v0.MassUnder(hyp),
					PtV0:         ptV0,
					V0CosPA:      v0.CosPA,
					V0DCAToPV:    dcaToPV,
					V0Radius:     v0.Radius,
				})
			}

			if _, seen := dedup.lookup(v0.GlobalID); !seen {
				id := dedup.insert(v0.GlobalID)
				res.V0s = append(res.V0s, domain.ReducedV0{
					ID:             id,
					PosTrackID:     v0.PosTrackID,
					NegTrackID:     v0.NegTrackID,
					CollisionRef:   collisionRef,
					DecayVertex:    v0.DecayVertex,
					MassK0Short:    v0.MassK0Short,
					MassLambda:     v0.MassLambda,
					MassAntiLambda: v0.MassAntiLambda,
					P:              v0.P,
					CosPA:          v0.CosPA,
					DCAToPV:        dcaToPV,
					Radius:         v0.Radius,
					SelBits:        bits,
				})
			}
			dKept = true
		}

		if dKept {
			res.DCands = append(res.DCands, domain.ReducedDCandidate{
				ID:              refs.NextD + int64(len(res.DCands)),
				ProngIDs:        d.ProngIDs,
				CollisionRef:    collisionRef,
				SecondaryVertex: d.SecondaryVertex,
				InvMass:         d.InvMass,
				P:               d.P,
				SignedType:      d.SignedType,
			})
			e.obs.RecordDCandidate(e.channel, d.SignedType, d.InvMass, ptD)
		}
	}

	if len(res.DCands) == 0 {
		e.obs.RecordSelectionStep(StepCollisionRejected)
		return res, nil
	}

	e.obs.RecordSelectionStep(StepCollisionSelected)
	res.Collision = &domain.ReducedCollision{
		ID:     collisionRef,
		Vertex: col.Vertex,
		Cov:    col.Cov,
	}
	return res, nil
}
