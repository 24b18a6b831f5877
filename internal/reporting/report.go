package reporting

import (
	"time"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/pairing"
)

// Report is the renderer-agnostic QA summary of one reduction run.
type Report struct {
	GeneratedAt time.Time
	Channel     domain.DecayChannel
	DataVersion string // short content hash of the pair table

	// Reduced-table row counts
	Summary Summary

	// Per-collision counter stages, in engine order
	SelectionSteps [pairing.NumSelectionSteps]SelectionStepRow

	// 1D mass and kinematic spectra
	Spectra []SpectrumRow

	// Pair yield per transverse-momentum bin
	PairYield []PtBinRow
}

// Summary holds the reduced-table row counts.
type Summary struct {
	Collisions  int64
	DCandidates int64
	V0s         int64
	Pairs       int64
}

// SelectionStepRow is one per-collision counter stage.
type SelectionStepRow struct {
	Step       string
	Collisions uint64
}

// SpectrumRow summarizes one 1D spectrum.
type SpectrumRow struct {
	Name      string
	Entries   uint64
	Peak      float64 // bin center of the most populated bin, 0 when empty
	Underflow uint64
	Overflow  uint64
}

// PtBinRow is the pair yield in one transverse-momentum bin.
type PtBinRow struct {
	PtLo  float64
	PtHi  float64
	Pairs uint64
}
