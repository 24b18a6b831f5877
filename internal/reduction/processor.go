// Package reduction drives the batch pass: it drains an event source, gates
// D candidates on their upstream flags, runs the pairing engine per
// collision and persists the reduced records in input order.
package reduction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/ingestion"
	"charm-reso-lab/internal/pairing"
	"charm-reso-lab/internal/prefilter"
	"charm-reso-lab/internal/storage"
)

// progressInterval is the collision count between progress log lines.
const progressInterval = 10000

// Options contains configuration for creating a Processor.
type Options struct {
	Engine     *pairing.Engine
	Prefilter  *prefilter.Gate // nil keeps every candidate
	Calib      *calib.Cache    // nil skips field resolution; propagation must then be off
	Collisions storage.ReducedCollisionStore
	DCands     storage.ReducedDStore
	V0s        storage.ReducedV0Store
	Pairs      storage.PairStore
	Workers    int // collision-level parallelism, default 1
	Logger     *log.Logger
}

// Processor owns one reduction run: source draining, per-collision engine
// passes, row persistence and cursor bookkeeping.
type Processor struct {
	engine     *pairing.Engine
	gate       *prefilter.Gate
	calib      *calib.Cache
	collisions storage.ReducedCollisionStore
	dCands     storage.ReducedDStore
	v0s        storage.ReducedV0Store
	pairs      storage.PairStore
	workers    int
	logger     *log.Logger
}

// NewProcessor creates a reduction processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Engine == nil {
		return nil, errors.New("pairing engine is required")
	}
	if opts.Collisions == nil || opts.DCands == nil || opts.V0s == nil || opts.Pairs == nil {
		return nil, errors.New("all four reduced stores are required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Processor{
		engine:     opts.Engine,
		gate:       opts.Prefilter,
		calib:      opts.Calib,
		collisions: opts.Collisions,
		dCands:     opts.DCands,
		v0s:        opts.V0s,
		pairs:      opts.Pairs,
		workers:    workers,
		logger:     logger,
	}, nil
}

// RunSummary contains statistics from one reduction run.
type RunSummary struct {
	CollisionsProcessed int64
	CollisionsSelected  int64
	DKept               int64
	V0Kept              int64
	Pairs               int64
}

func (s *RunSummary) add(res *pairing.Result) {
	s.CollisionsProcessed++
	if res.Collision != nil {
		s.CollisionsSelected++
	}
	s.DKept += int64(len(res.DCands))
	s.V0Kept += int64(len(res.V0s))
	s.Pairs += int64(len(res.Pairs))
}

// Run drains the source until io.EOF and returns the run statistics. A
// calibration fetch failure aborts the batch: reusing a stale field context
// would silently corrupt propagated quantities.
func (p *Processor) Run(ctx context.Context, src ingestion.EventSource) (*RunSummary, error) {
	start := time.Now()
	p.logger.Printf("Starting reduction: channel=%s workers=%d", p.engine.Channel(), p.workers)

	refs, err := p.initialRefs(ctx)
	if err != nil {
		return nil, err
	}
	if refs != (pairing.TableRefs{}) {
		p.logger.Printf("Resuming on non-empty tables: collisions=%d dRows=%d v0Rows=%d",
			refs.NextCollision, refs.NextD, refs.NextV0)
	}

	var summary *RunSummary
	if p.workers > 1 {
		summary, err = p.runParallel(ctx, src, refs)
	} else {
		summary, err = p.runSerial(ctx, src, refs)
	}
	if err != nil {
		return summary, err
	}

	p.logger.Printf("Reduction complete in %v: %d collisions processed, %d selected, %d D rows, %d V0 rows, %d pairs",
		time.Since(start), summary.CollisionsProcessed, summary.CollisionsSelected,
		summary.DKept, summary.V0Kept, summary.Pairs)
	return summary, nil
}

// initialRefs derives the starting table cursors from the stored row counts.
// Rows are numbered densely from zero, so on a fresh table the cursor is zero
// and on a resumed one it is the next free id.
func (p *Processor) initialRefs(ctx context.Context) (pairing.TableRefs, error) {
	nCollisions, err := p.collisions.Count(ctx)
	if err != nil {
		return pairing.TableRefs{}, fmt.Errorf("count collisions: %w", err)
	}
	nD, err := p.dCands.Count(ctx)
	if err != nil {
		return pairing.TableRefs{}, fmt.Errorf("count D rows: %w", err)
	}
	nV0, err := p.v0s.Count(ctx)
	if err != nil {
		return pairing.TableRefs{}, fmt.Errorf("count V0 rows: %w", err)
	}
	return pairing.TableRefs{NextCollision: nCollisions, NextD: nD, NextV0: nV0}, nil
}

// runSerial processes collisions one at a time with live table cursors.
func (p *Processor) runSerial(ctx context.Context, src ingestion.EventSource, refs pairing.TableRefs) (*RunSummary, error) {
	summary := &RunSummary{}

	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			return summary, fmt.Errorf("read event: %w", err)
		}

		res, err := p.process(ctx, ev, refs)
		if err != nil {
			return summary, err
		}

		if err := p.persist(ctx, res); err != nil {
			return summary, err
		}
		refs = res.Advance(refs)

		summary.add(res)
		if summary.CollisionsProcessed%progressInterval == 0 {
			p.logger.Printf("Processed %d collisions, selected %d", summary.CollisionsProcessed, summary.CollisionsSelected)
		}
	}
}

type sequencedEvent struct {
	seq int64
	ev  *domain.CollisionEvent
}

type sequencedResult struct {
	seq int64
	res *pairing.Result
}

// runParallel fans collisions out over a worker pool. Workers run the
// engine with zero-based cursors; the collector rebases each result onto
// the global tables and flushes strictly in input order, so the output is
// identical to a serial run.
func (p *Processor) runParallel(ctx context.Context, src ingestion.EventSource, start pairing.TableRefs) (*RunSummary, error) {
	summary := &RunSummary{}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan sequencedEvent, p.workers)
	results := make(chan sequencedResult, p.workers)

	// Reader assigns sequence numbers in arrival order.
	g.Go(func() error {
		defer close(jobs)
		var seq int64
		for {
			ev, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("read event: %w", err)
			}
			select {
			case jobs <- sequencedEvent{seq: seq, ev: ev}:
			case <-ctx.Done():
				return ctx.Err()
			}
			seq++
		}
	})

	var workers sync.WaitGroup
	workers.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			defer workers.Done()
			for job := range jobs {
				res, err := p.process(ctx, job.ev, pairing.TableRefs{})
				if err != nil {
					return err
				}
				select {
				case results <- sequencedResult{seq: job.seq, res: res}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	// Collector restores input order before touching cursors or stores.
	g.Go(func() error {
		pending := make(map[int64]*pairing.Result)
		refs := start
		var next int64

		for sr := range results {
			pending[sr.seq] = sr.res
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)

				res.Rebase(refs)
				if err := p.persist(ctx, res); err != nil {
					return err
				}
				refs = res.Advance(refs)

				summary.add(res)
				if summary.CollisionsProcessed%progressInterval == 0 {
					p.logger.Printf("Processed %d collisions, selected %d", summary.CollisionsProcessed, summary.CollisionsSelected)
				}
				next++
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// process resolves the field context, gates the channel's parent-kind
// candidates and runs the engine for one collision.
func (p *Processor) process(ctx context.Context, ev *domain.CollisionEvent, refs pairing.TableRefs) (*pairing.Result, error) {
	var fld *calib.FieldContext
	if p.calib != nil {
		var err error
		fld, err = p.calib.Context(ctx, ev.Collision.RunNumber)
		if err != nil {
			return nil, fmt.Errorf("collision %d: %w", ev.Collision.ID, err)
		}
	}

	cands := ev.CandidatesFor(p.engine.Channel().ParentKind())
	if p.gate != nil {
		kept := make([]domain.DCandidate, 0, len(cands))
		for i := range cands {
			ok, err := p.gate.Keep(&cands[i])
			if err != nil {
				return nil, fmt.Errorf("prefilter collision %d: %w", ev.Collision.ID, err)
			}
			if ok {
				kept = append(kept, cands[i])
			}
		}
		cands = kept
	}

	return p.engine.ProcessCollision(fld, refs, ev.Collision, cands, ev.V0s)
}

// persist writes one collision's reduced rows. Rejected collisions produce
// nothing at all, matching the conditional-emission contract.
func (p *Processor) persist(ctx context.Context, res *pairing.Result) error {
	if res.Collision == nil {
		return nil
	}

	if err := p.collisions.Insert(ctx, res.Collision); err != nil {
		return fmt.Errorf("insert collision %d: %w", res.Collision.ID, err)
	}
	if len(res.DCands) > 0 {
		if err := p.dCands.InsertBulk(ctx, dPtrs(res.DCands)); err != nil {
			return fmt.Errorf("insert D rows of collision %d: %w", res.Collision.ID, err)
		}
	}
	if len(res.V0s) > 0 {
		if err := p.v0s.InsertBulk(ctx, v0Ptrs(res.V0s)); err != nil {
			return fmt.Errorf("insert V0 rows of collision %d: %w", res.Collision.ID, err)
		}
	}
	if len(res.Pairs) > 0 {
		if err := p.pairs.InsertBulk(ctx, pairPtrs(res.Pairs)); err != nil {
			return fmt.Errorf("insert pair rows of collision %d: %w", res.Collision.ID, err)
		}
	}
	return nil
}

func dPtrs(in []domain.ReducedDCandidate) []*domain.ReducedDCandidate {
	out := make([]*domain.ReducedDCandidate, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func v0Ptrs(in []domain.ReducedV0) []*domain.ReducedV0 {
	out := make([]*domain.ReducedV0, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func pairPtrs(in []domain.PairCandidate) []*domain.PairCandidate {
	out := make([]*domain.PairCandidate, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}
