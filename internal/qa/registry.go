package qa

import (
	"sync"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/pairing"
)

// DefaultPtBins are the transverse-momentum bin edges used for resonance
// spectra, in GeV/c.
var DefaultPtBins = []float64{1, 2, 4, 6, 8, 12, 24, 50}

// Registry aggregates QA observations for one decay channel. Safe for
// concurrent use by parallel collision passes.
type Registry struct {
	mu      sync.Mutex
	channel domain.DecayChannel

	steps [pairing.NumSelectionSteps]uint64

	dMass  *Hist1D
	dPt    *Hist1D
	dType  *Hist1D
	v0Pt   *Hist1D
	v0Type *Hist1D
	massK0 *Hist1D
	massLa *Hist1D

	pairMass *MassVsPt
}

// Compile-time interface check.
var _ pairing.Observer = (*Registry)(nil)

// NewRegistry creates a registry with the channel's standard axes. Passing
// nil ptBins selects DefaultPtBins.
func NewRegistry(ch domain.DecayChannel, ptBins []float64) *Registry {
	if ptBins == nil {
		ptBins = DefaultPtBins
	}

	var dMass *Hist1D
	if ch.ParentKind() == domain.DKindDstar {
		// soft-pion corrected mass difference m(D*) - m(D0)
		dMass = NewHist1D("mass_dstar", 100, 0.05, 0.25)
	} else {
		dMass = NewHist1D("mass_dplus", 100, 1.7, 2.0)
	}

	pairName, pairLo, pairHi := pairAxis(ch)

	return &Registry{
		channel:  ch,
		dMass:    dMass,
		dPt:      NewHist1D("pt_d", 100, 0, 10),
		dType:    NewHist1D("d_type", 5, -2.5, 2.5),
		v0Pt:     NewHist1D("pt_v0", 100, 0, 10),
		v0Type:   NewHist1D("v0_type", 8, -0.5, 7.5),
		massK0:   NewHist1D("mass_k0s", 100, 0.35, 0.65),
		massLa:   NewHist1D("mass_lambda", 100, 1.05, 1.35),
		pairMass: NewMassVsPt(pairName, 100, pairLo, pairHi, ptBins),
	}
}

// pairAxis returns the resonance spectrum axis for a channel. The spectra
// are plotted in the combined mass minus the D-leg measured mass.
func pairAxis(ch domain.DecayChannel) (name string, lo, hi float64) {
	switch ch {
	case domain.ChannelDs1ToDstarK0s:
		return "mass_ds1", 0.45, 0.7
	case domain.ChannelDs2StarToDplusK0s:
		return "mass_ds2star", 0.4, 1.0
	case domain.ChannelXcResToDplusLambda:
		return "mass_xcres", 1.0, 1.4
	default:
		return "mass_pair", 0, 5
	}
}

// Channel returns the decay channel the registry was built for.
func (r *Registry) Channel() domain.DecayChannel {
	return r.channel
}

// RecordSelectionStep counts one collision reaching the given stage.
func (r *Registry) RecordSelectionStep(step pairing.SelectionStep) {
	if int(step) >= len(r.steps) {
		return
	}
	r.mu.Lock()
	r.steps[step]++
	r.mu.Unlock()
}

// RecordDCandidate observes a kept D candidate.
func (r *Registry) RecordDCandidate(_ domain.DecayChannel, signedType int8, invMass, pt float64) {
	r.mu.Lock()
	r.dMass.Fill(invMass)
	r.dPt.Fill(pt)
	r.dType.Fill(float64(signedType))
	r.mu.Unlock()
}

// RecordV0 observes an accepted V0 evaluation.
func (r *Registry) RecordV0(bits domain.V0SelectionBits, pt float64) {
	r.mu.Lock()
	r.v0Pt.Fill(pt)
	r.v0Type.Fill(float64(bits))
	r.mu.Unlock()
}

// RecordV0Mass observes the measured V0 mass under one surviving hypothesis.
// Both Lambda states share one spectrum, like the proton-pion mass plots the
// analysis publishes.
func (r *Registry) RecordV0Mass(h domain.V0Hypothesis, mass float64) {
	r.mu.Lock()
	if h == domain.HypK0Short {
		r.massK0.Fill(mass)
	} else {
		r.massLa.Fill(mass)
	}
	r.mu.Unlock()
}

// RecordPairMass observes one built pair.
func (r *Registry) RecordPairMass(_ domain.DecayChannel, deltaMass, pt float64) {
	r.mu.Lock()
	r.pairMass.Fill(deltaMass, pt)
	r.mu.Unlock()
}

// Snapshot returns a copy of every histogram and counter.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Channel:        r.channel,
		SelectionSteps: r.steps,
		DMass:          r.dMass.Snapshot(),
		DPt:            r.dPt.Snapshot(),
		DType:          r.dType.Snapshot(),
		V0Pt:           r.v0Pt.Snapshot(),
		V0Type:         r.v0Type.Snapshot(),
		MassK0Short:    r.massK0.Snapshot(),
		MassLambda:     r.massLa.Snapshot(),
		PairMass:       r.pairMass.Snapshot(),
	}
}

// Snapshot is a point-in-time copy of a Registry.
type Snapshot struct {
	Channel        domain.DecayChannel
	SelectionSteps [pairing.NumSelectionSteps]uint64
	DMass          Hist1DSnapshot
	DPt            Hist1DSnapshot
	DType          Hist1DSnapshot
	V0Pt           Hist1DSnapshot
	V0Type         Hist1DSnapshot
	MassK0Short    Hist1DSnapshot
	MassLambda     Hist1DSnapshot
	PairMass       MassVsPtSnapshot
}
