// Package calib provides the run-scoped magnetic-field calibration context
// and its retrieval/caching machinery. Collisions are naturally grouped by
// run, so the expected common case is a cache hit; a run change triggers
// exactly one refresh, and a failed refresh aborts the batch.
package calib

import (
	"errors"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/kinematics"
)

// ErrUnavailable is returned when the calibration database has no field
// context for the requested run. Callers must treat it as fatal for the
// batch; computing propagated quantities without it would silently corrupt
// the output.
var ErrUnavailable = errors.New("field context unavailable")

// FieldContext is the materialized magnetic-field context for one run.
type FieldContext struct {
	RunNumber int32   // run the context belongs to
	Bz        float64 // solenoid field along z (kG)
	FetchedAt int64   // Unix timestamp in milliseconds at fetch time
}

// NeutralDCAToPV returns the distance of closest approach of a neutral
// trajectory to the primary vertex. A charge-zero track does not bend in the
// field, so the trajectory is the straight line from the decay vertex along
// the momentum direction.
func (f *FieldContext) NeutralDCAToPV(decayVertex, p, primaryVertex domain.Vec3) float64 {
	return kinematics.PointLineDCA(primaryVertex, decayVertex, p)
}
