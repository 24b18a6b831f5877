package observability

import (
	"context"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/pairing"
)

// ObserverAdapter bridges pairing.Observer onto the Prometheus metric set.
// Prometheus counters are safe for concurrent use, so the adapter is too.
type ObserverAdapter struct {
	m *Metrics
}

// NewObserverAdapter creates an adapter. Passing nil selects DefaultMetrics.
func NewObserverAdapter(m *Metrics) *ObserverAdapter {
	if m == nil {
		m = DefaultMetrics
	}
	return &ObserverAdapter{m: m}
}

// Compile-time interface check.
var _ pairing.Observer = (*ObserverAdapter)(nil)

// RecordSelectionStep counts one collision reaching the given stage.
func (a *ObserverAdapter) RecordSelectionStep(step pairing.SelectionStep) {
	a.m.SelectionSteps.WithLabelValues(step.String()).Inc()
	switch step {
	case pairing.StepCollisionProcessed:
		a.m.CollisionsProcessed.Inc()
	case pairing.StepCollisionSelected:
		a.m.CollisionsSelected.Inc()
	}
}

// RecordDCandidate counts a kept D candidate.
func (a *ObserverAdapter) RecordDCandidate(ch domain.DecayChannel, _ int8, _, _ float64) {
	a.m.DCandidatesKept.WithLabelValues(ch.String()).Inc()
}

// RecordV0 counts an accepted V0 evaluation.
func (a *ObserverAdapter) RecordV0(_ domain.V0SelectionBits, _ float64) {
	a.m.V0sKept.Inc()
}

// RecordV0Mass is a no-op: mass spectra live in the QA registry, not in
// Prometheus.
func (a *ObserverAdapter) RecordV0Mass(domain.V0Hypothesis, float64) {}

// RecordPairMass counts one built pair.
func (a *ObserverAdapter) RecordPairMass(ch domain.DecayChannel, _, _ float64) {
	a.m.PairsBuilt.WithLabelValues(ch.String()).Inc()
}

// InstrumentedFetcher decorates a calib.Fetcher with fetch counters.
type InstrumentedFetcher struct {
	next calib.Fetcher
	m    *Metrics
}

// NewInstrumentedFetcher wraps next. Passing nil metrics selects
// DefaultMetrics.
func NewInstrumentedFetcher(next calib.Fetcher, m *Metrics) *InstrumentedFetcher {
	if m == nil {
		m = DefaultMetrics
	}
	return &InstrumentedFetcher{next: next, m: m}
}

// Compile-time interface check.
var _ calib.Fetcher = (*InstrumentedFetcher)(nil)

// FetchFieldContext forwards to the wrapped fetcher, counting the attempt
// and any failure.
func (f *InstrumentedFetcher) FetchFieldContext(ctx context.Context, runNumber int32) (*calib.FieldContext, error) {
	f.m.FieldFetches.Inc()
	fld, err := f.next.FetchFieldContext(ctx, runNumber)
	if err != nil {
		f.m.FieldFetchErrors.Inc()
	}
	return fld, err
}
