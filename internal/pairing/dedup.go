package pairing

// dedupIndex maps an original V0 identity to its assigned row in the reduced
// V0 table. It is scoped to a single collision pass and never survives it:
// the same physical V0 reused by several D candidates within one collision
// lands in the output exactly once, while the next collision starts from an
// empty index again.
type dedupIndex struct {
	base int64
	rows map[int64]int64
}

// newDedupIndex creates an index assigning rows starting at base.
func newDedupIndex(base int64) *dedupIndex {
	return &dedupIndex{base: base, rows: make(map[int64]int64)}
}

// lookup returns the reduced-table row already assigned to identity, if any.
func (idx *dedupIndex) lookup(identity int64) (int64, bool) {
	row, ok := idx.rows[identity]
	return row, ok
}

// insert assigns the next free row to identity and returns it. Callers must
// check lookup first; inserting a known identity would burn a row.
func (idx *dedupIndex) insert(identity int64) int64 {
	row := idx.base + int64(len(idx.rows))
	idx.rows[identity] = row
	return row
}

// size returns the number of assigned rows.
func (idx *dedupIndex) size() int {
	return len(idx.rows)
}
