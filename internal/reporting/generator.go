package reporting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/pairing"
	"charm-reso-lab/internal/qa"
	"charm-reso-lab/internal/storage"
)

// Generator produces reports from the reduced stores and a QA snapshot.
type Generator struct {
	collisions storage.ReducedCollisionStore
	dcands     storage.ReducedDStore
	v0s        storage.ReducedV0Store
	pairs      storage.PairStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator over the four reduced stores.
func NewGenerator(
	collisions storage.ReducedCollisionStore,
	dcands storage.ReducedDStore,
	v0s storage.ReducedV0Store,
	pairs storage.PairStore,
) *Generator {
	return &Generator{
		collisions: collisions,
		dcands:     dcands,
		v0s:        v0s,
		pairs:      pairs,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the report for one run from the stores and the QA
// snapshot collected alongside it.
func (g *Generator) Generate(ctx context.Context, snap qa.Snapshot) (*Report, error) {
	summary, err := g.loadSummary(ctx)
	if err != nil {
		return nil, err
	}

	// Pair rows feed the data-version hash.
	pairRows, err := g.pairs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Channel:     snap.Channel,
		DataVersion: computeDataVersion(summary, pairRows),
		Summary:     summary,
		Spectra:     spectrumRows(snap),
		PairYield:   pairYield(snap.PairMass),
	}
	for i := range report.SelectionSteps {
		report.SelectionSteps[i] = SelectionStepRow{
			Step:       pairing.SelectionStep(i).String(),
			Collisions: snap.SelectionSteps[i],
		}
	}

	return report, nil
}

func (g *Generator) loadSummary(ctx context.Context) (Summary, error) {
	var s Summary
	var err error

	if s.Collisions, err = g.collisions.Count(ctx); err != nil {
		return s, fmt.Errorf("count collisions: %w", err)
	}
	if s.DCandidates, err = g.dcands.Count(ctx); err != nil {
		return s, fmt.Errorf("count d candidates: %w", err)
	}
	if s.V0s, err = g.v0s.Count(ctx); err != nil {
		return s, fmt.Errorf("count v0s: %w", err)
	}
	if s.Pairs, err = g.pairs.Count(ctx); err != nil {
		return s, fmt.Errorf("count pairs: %w", err)
	}

	return s, nil
}

// spectrumRows summarizes every 1D histogram in the snapshot.
func spectrumRows(snap qa.Snapshot) []SpectrumRow {
	hists := []qa.Hist1DSnapshot{
		snap.DMass, snap.DPt, snap.DType,
		snap.V0Pt, snap.V0Type,
		snap.MassK0Short, snap.MassLambda,
	}

	rows := make([]SpectrumRow, 0, len(hists))
	for _, h := range hists {
		row := SpectrumRow{
			Name:      h.Name,
			Entries:   h.Entries(),
			Underflow: h.Underflow,
			Overflow:  h.Overflow,
		}
		if bin := h.MaxBin(); bin >= 0 {
			row.Peak = h.BinCenter(bin)
		}
		rows = append(rows, row)
	}
	return rows
}

// pairYield projects the pair-mass spectrum onto its pt axis.
func pairYield(s qa.MassVsPtSnapshot) []PtBinRow {
	proj := s.PtProjection()
	rows := make([]PtBinRow, len(proj))
	for i, n := range proj {
		rows[i] = PtBinRow{PtLo: s.PtEdges[i], PtHi: s.PtEdges[i+1], Pairs: n}
	}
	return rows
}

// computeDataVersion computes a SHA256 hash of the reduced output for
// reproducibility: two runs over the same input yield the same short hash
// regardless of the order rows come back from the store.
func computeDataVersion(summary Summary, pairs []*domain.PairCandidate) string {
	h := sha256.New()

	h.Write([]byte("COUNTS\n"))
	h.Write([]byte(fmt.Sprintf("%d|%d|%d|%d",
		summary.Collisions, summary.DCandidates, summary.V0s, summary.Pairs)))

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%d|%d|%.6f|%.6f|%.6f|%.6f|%.6f|%.6f",
			p.CollisionRef, p.Channel,
			p.InvMass, p.Pt, p.InvMassD, p.PtD, p.InvMassV0, p.PtV0)
	}
	sort.Strings(parts)
	h.Write([]byte("\nPAIRS\n"))
	h.Write([]byte(strings.Join(parts, "\n")))

	return hex.EncodeToString(h.Sum(nil))[:12] // short hash
}
