package ingestion

import (
	"context"

	"charm-reso-lab/internal/domain"
)

// EventSource yields collision events in input order. Sources assign
// collision indices sequentially as events arrive, so the order of Next
// calls defines the batch ordering downstream.
type EventSource interface {
	// Next returns the next collision event. It returns io.EOF once the
	// source is exhausted and the context error if ctx is cancelled first.
	Next(ctx context.Context) (*domain.CollisionEvent, error)
}
