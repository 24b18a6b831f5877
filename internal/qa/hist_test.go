package qa

import "testing"

func TestHist1D_FillAndRanges(t *testing.T) {
	h := NewHist1D("test", 10, 0, 1)

	h.Fill(0.05)  // bin 0
	h.Fill(0.05)  // bin 0
	h.Fill(0.95)  // bin 9
	h.Fill(-0.1)  // underflow
	h.Fill(1.0)   // upper edge is exclusive: overflow
	h.Fill(1.5)   // overflow

	s := h.Snapshot()

	if s.Counts[0] != 2 {
		t.Errorf("bin 0: got %d, want 2", s.Counts[0])
	}
	if s.Counts[9] != 1 {
		t.Errorf("bin 9: got %d, want 1", s.Counts[9])
	}
	if s.Underflow != 1 {
		t.Errorf("underflow: got %d, want 1", s.Underflow)
	}
	if s.Overflow != 2 {
		t.Errorf("overflow: got %d, want 2", s.Overflow)
	}
	if s.Entries() != 6 {
		t.Errorf("entries: got %d, want 6", s.Entries())
	}
}

func TestHist1D_LowerEdgeInclusive(t *testing.T) {
	h := NewHist1D("test", 4, 1.0, 2.0)

	h.Fill(1.0)
	s := h.Snapshot()

	if s.Counts[0] != 1 {
		t.Errorf("lower edge must land in bin 0, got counts %v under %d", s.Counts, s.Underflow)
	}
}

func TestHist1D_BinCenter(t *testing.T) {
	h := NewHist1D("test", 10, 0, 1)
	s := h.Snapshot()

	if got := s.BinCenter(0); got != 0.05 {
		t.Errorf("bin 0 center: got %f, want 0.05", got)
	}
	if got := s.BinCenter(9); got != 0.95 {
		t.Errorf("bin 9 center: got %f, want 0.95", got)
	}
}

func TestHist1D_MaxBin(t *testing.T) {
	h := NewHist1D("test", 5, 0, 5)

	if got := h.Snapshot().MaxBin(); got != -1 {
		t.Errorf("empty MaxBin: got %d, want -1", got)
	}

	h.Fill(2.5)
	h.Fill(2.5)
	h.Fill(4.5)

	if got := h.Snapshot().MaxBin(); got != 2 {
		t.Errorf("MaxBin: got %d, want 2", got)
	}
}

func TestHist1D_SnapshotIsCopy(t *testing.T) {
	h := NewHist1D("test", 3, 0, 3)
	h.Fill(0.5)

	s := h.Snapshot()
	h.Fill(0.5)

	if s.Counts[0] != 1 {
		t.Error("snapshot must not track later fills")
	}
}

func TestMassVsPt_Fill(t *testing.T) {
	h := NewMassVsPt("test", 4, 0, 4, []float64{1, 2, 4, 8})

	h.Fill(0.5, 1.5)  // mass bin 0, pt bin 0
	h.Fill(3.5, 5.0)  // mass bin 3, pt bin 2
	h.Fill(3.5, 5.0)  // again
	h.Fill(-1.0, 2.0) // mass out of range
	h.Fill(1.0, 0.5)  // pt below first edge
	h.Fill(1.0, 8.0)  // pt at last edge: outside

	s := h.Snapshot()

	if s.Counts[0][0] != 1 {
		t.Errorf("counts[0][0]: got %d, want 1", s.Counts[0][0])
	}
	if s.Counts[3][2] != 2 {
		t.Errorf("counts[3][2]: got %d, want 2", s.Counts[3][2])
	}
	if s.Outside != 3 {
		t.Errorf("outside: got %d, want 3", s.Outside)
	}
	if s.Entries() != 6 {
		t.Errorf("entries: got %d, want 6", s.Entries())
	}
}

func TestMassVsPt_Projections(t *testing.T) {
	h := NewMassVsPt("test", 2, 0, 2, []float64{0, 1, 2})

	h.Fill(0.5, 0.5) // mass 0, pt 0
	h.Fill(0.5, 1.5) // mass 0, pt 1
	h.Fill(1.5, 1.5) // mass 1, pt 1

	s := h.Snapshot()

	ptProj := s.PtProjection()
	if ptProj[0] != 1 || ptProj[1] != 2 {
		t.Errorf("pt projection: got %v, want [1 2]", ptProj)
	}

	massProj := s.MassProjection()
	if massProj[0] != 2 || massProj[1] != 1 {
		t.Errorf("mass projection: got %v, want [2 1]", massProj)
	}
}

func TestMassVsPt_VariableWidthPtBins(t *testing.T) {
	h := NewMassVsPt("test", 1, 0, 1, DefaultPtBins)

	cases := []struct {
		pt   float64
		want int
	}{
		{1.0, 0},
		{1.9, 0},
		{2.0, 1},
		{5.0, 2},
		{11.9, 4},
		{12.0, 5},
		{49.9, 6},
	}

	for _, tc := range cases {
		if got := h.ptBin(tc.pt); got != tc.want {
			t.Errorf("ptBin(%f): got %d, want %d", tc.pt, got, tc.want)
		}
	}

	if got := h.ptBin(0.5); got != -1 {
		t.Errorf("ptBin below range: got %d, want -1", got)
	}
	if got := h.ptBin(50.0); got != -1 {
		t.Errorf("ptBin at upper edge: got %d, want -1", got)
	}
}
