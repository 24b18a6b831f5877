package pairing

import "charm-reso-lab/internal/domain"

// SelectionStep enumerates the per-collision counter stages the engine
// reports.
type SelectionStep uint8

const (
	StepCollisionProcessed SelectionStep = iota
	StepCollisionRejected  // no (D, V0) pair survived
	StepCollisionSelected  // at least one pair kept
)

// NumSelectionSteps is the number of SelectionStep values.
const NumSelectionSteps = 3

// String returns the string representation of SelectionStep.
func (s SelectionStep) String() string {
	switch s {
	case StepCollisionProcessed:
		return "processed"
	case StepCollisionRejected:
		return "without DV0 pairs"
	case StepCollisionSelected:
		return "with DV0 pairs"
	default:
		return "unknown"
	}
}

// Observer receives QA side observations from the pairing engine. The
// engine's reduced output never depends on an observer being attached.
// Implementations shared across parallel collision passes must be safe for
// concurrent use.
type Observer interface {
	// RecordSelectionStep counts one collision reaching the given stage.
	RecordSelectionStep(step SelectionStep)
	// RecordDCandidate observes a kept D candidate, once per D that kept at
	// least one V0 partner.
	RecordDCandidate(ch domain.DecayChannel, signedType int8, invMass, pt float64)
	// RecordV0 observes an accepted V0, once per accepted (D, V0)
	// evaluation.
	RecordV0(bits domain.V0SelectionBits, pt float64)
	// RecordV0Mass observes the measured V0 mass under one surviving
	// hypothesis.
	RecordV0Mass(h domain.V0Hypothesis, mass float64)
	// RecordPairMass observes one built pair. deltaMass is the combined
	// mass minus the D-leg invariant mass, the quantity resonance spectra
	// are plotted in.
	RecordPairMass(ch domain.DecayChannel, deltaMass, pt float64)
}

// MultiObserver fans every observation out to each member in order.
type MultiObserver []Observer

var _ Observer = MultiObserver{}

func (m MultiObserver) RecordSelectionStep(step SelectionStep) {
	for _, o := range m {
		o.RecordSelectionStep(step)
	}
}

func (m MultiObserver) RecordDCandidate(ch domain.DecayChannel, signedType int8, invMass, pt float64) {
	for _, o := range m {
		o.RecordDCandidate(ch, signedType, invMass, pt)
	}
}

func (m MultiObserver) RecordV0(bits domain.V0SelectionBits, pt float64) {
	for _, o := range m {
		o.RecordV0(bits, pt)
	}
}

func (m MultiObserver) RecordV0Mass(h domain.V0Hypothesis, mass float64) {
	for _, o := range m {
		o.RecordV0Mass(h, mass)
	}
}

func (m MultiObserver) RecordPairMass(ch domain.DecayChannel, deltaMass, pt float64) {
	for _, o := range m {
		o.RecordPairMass(ch, deltaMass, pt)
	}
}

// NopObserver ignores every observation.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) RecordSelectionStep(SelectionStep) {}
func (NopObserver) RecordDCandidate(domain.DecayChannel, int8, float64, float64) {}
func (NopObserver) RecordV0(domain.V0SelectionBits, float64) {}
func (NopObserver) RecordV0Mass(domain.V0Hypothesis, float64) {}
func (NopObserver) RecordPairMass(domain.DecayChannel, float64, float64) {}
