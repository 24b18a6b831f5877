// Package qa collects selection counters and mass spectra during a
// reduction run. It implements the pairing observer; the reduced output
// never depends on it.
package qa

import "sort"

// Hist1D is a fixed-range, uniformly binned counter. Values below the range
// go to the underflow tally, values at or above the upper edge to overflow.
type Hist1D struct {
	name   string
	lo, hi float64
	counts []uint64
	under  uint64
	over   uint64
}

// NewHist1D creates a histogram with the given axis. bins must be positive
// and hi > lo; the zero-value panics on Fill, so constructors own validation.
func NewHist1D(name string, bins int, lo, hi float64) *Hist1D {
	if bins <= 0 || hi <= lo {
		panic("qa: invalid histogram axis")
	}
	return &Hist1D{
		name:   name,
		lo:     lo,
		hi:     hi,
		counts: make([]uint64, bins),
	}
}

// Fill adds one entry at x.
func (h *Hist1D) Fill(x float64) {
	switch {
	case x < h.lo:
		h.under++
	case x >= h.hi:
		h.over++
	default:
		bin := int((x - h.lo) / (h.hi - h.lo) * float64(len(h.counts)))
		if bin == len(h.counts) { // float rounding at the upper edge
			bin--
		}
		h.counts[bin]++
	}
}

// Snapshot returns a copy of the current contents.
func (h *Hist1D) Snapshot() Hist1DSnapshot {
	counts := make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return Hist1DSnapshot{
		Name:      h.name,
		Lo:        h.lo,
		Hi:        h.hi,
		Counts:    counts,
		Underflow: h.under,
		Overflow:  h.over,
	}
}

// Hist1DSnapshot is a point-in-time copy of a Hist1D.
type Hist1DSnapshot struct {
	Name      string
	Lo, Hi    float64
	Counts    []uint64
	Underflow uint64
	Overflow  uint64
}

// Entries returns the total number of fills, including under/overflow.
func (s Hist1DSnapshot) Entries() uint64 {
	total := s.Underflow + s.Overflow
	for _, c := range s.Counts {
		total += c
	}
	return total
}

// BinCenter returns the center of bin i.
func (s Hist1DSnapshot) BinCenter(i int) float64 {
	width := (s.Hi - s.Lo) / float64(len(s.Counts))
	return s.Lo + (float64(i)+0.5)*width
}

// MaxBin returns the index of the most populated bin, or -1 when empty.
func (s Hist1DSnapshot) MaxBin() int {
	best := -1
	var bestCount uint64
	for i, c := range s.Counts {
		if c > bestCount {
			best = i
			bestCount = c
		}
	}
	return best
}

// MassVsPt is a 2D counter: a uniformly binned mass axis against a
// variable-width transverse-momentum axis.
type MassVsPt struct {
	name    string
	lo, hi  float64
	ptEdges []float64
	counts  [][]uint64 // [massBin][ptBin]
	outside uint64     // entries outside either axis
}

// NewMassVsPt creates a 2D histogram. ptEdges must be strictly increasing
// with at least two entries.
func NewMassVsPt(name string, massBins int, lo, hi float64, ptEdges []float64) *MassVsPt {
	if massBins <= 0 || hi <= lo || len(ptEdges) < 2 {
		panic("qa: invalid 2d histogram axes")
	}
	if !sort.Float64sAreSorted(ptEdges) {
		panic("qa: pt edges not sorted")
	}

	edges := make([]float64, len(ptEdges))
	copy(edges, ptEdges)

	counts := make([][]uint64, massBins)
	for i := range counts {
		counts[i] = make([]uint64, len(edges)-1)
	}

	return &MassVsPt{
		name:    name,
		lo:      lo,
		hi:      hi,
		ptEdges: edges,
		counts:  counts,
	}
}

// Fill adds one entry at (mass, pt). Entries outside either axis are tallied
// but not binned.
func (h *MassVsPt) Fill(mass, pt float64) {
	massBin := h.massBin(mass)
	ptBin := h.ptBin(pt)
	if massBin < 0 || ptBin < 0 {
		h.outside++
		return
	}
	h.counts[massBin][ptBin]++
}

func (h *MassVsPt) massBin(mass float64) int {
	if mass < h.lo || mass >= h.hi {
		return -1
	}
	bin := int((mass - h.lo) / (h.hi - h.lo) * float64(len(h.counts)))
	if bin == len(h.counts) {
		bin--
	}
	return bin
}

func (h *MassVsPt) ptBin(pt float64) int {
	if pt < h.ptEdges[0] || pt >= h.ptEdges[len(h.ptEdges)-1] {
		return -1
	}
	// Edge slices are short (a handful of analysis bins); scan linearly.
	for i := 0; i < len(h.ptEdges)-1; i++ {
		if pt < h.ptEdges[i+1] {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the current contents.
func (h *MassVsPt) Snapshot() MassVsPtSnapshot {
	counts := make([][]uint64, len(h.counts))
	for i, row := range h.counts {
		counts[i] = make([]uint64, len(row))
		copy(counts[i], row)
	}
	edges := make([]float64, len(h.ptEdges))
	copy(edges, h.ptEdges)

	return MassVsPtSnapshot{
		Name:    h.name,
		MassLo:  h.lo,
		MassHi:  h.hi,
		PtEdges: edges,
		Counts:  counts,
		Outside: h.outside,
	}
}

// MassVsPtSnapshot is a point-in-time copy of a MassVsPt.
type MassVsPtSnapshot struct {
	Name           string
	MassLo, MassHi float64
	PtEdges        []float64
	Counts         [][]uint64
	Outside        uint64
}

// Entries returns the total number of fills, including out-of-range ones.
func (s MassVsPtSnapshot) Entries() uint64 {
	total := s.Outside
	for _, row := range s.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// PtProjection sums the mass axis away, returning one count per pt bin.
func (s MassVsPtSnapshot) PtProjection() []uint64 {
	if len(s.Counts) == 0 {
		return nil
	}
	proj := make([]uint64, len(s.Counts[0]))
	for _, row := range s.Counts {
		for j, c := range row {
			proj[j] += c
		}
	}
	return proj
}

// MassProjection sums the pt axis away, returning one count per mass bin.
func (s MassVsPtSnapshot) MassProjection() []uint64 {
	proj := make([]uint64, len(s.Counts))
	for i, row := range s.Counts {
		for _, c := range row {
			proj[i] += c
		}
	}
	return proj
}
