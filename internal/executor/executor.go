// Package executor implements the parallel-worker abstraction the
// scheduler drives: a local worker-pool Executor and a "distributed"
// stub falling back to the same pool, both yielding results in
// completion order via AsCompleted. Grounded on
// mapchete/_distributed.py (MultiprocessingExecutor, FinishedTask) and
// spec.md §4.9/§5's cancellation and ordering rules. AsCompleted, the Go
// counterpart of Python's multiprocessing.Pool.imap_unordered, runs a
// semaphore-bounded goroutine pool; Group's fail-fast fan-out/fan-in uses
// golang.org/x/sync/errgroup.
package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FinishedTask wraps a task's outcome: exactly one of Value/Err is set.
// Mirrors FinishedTask's result()/exception() pair.
type FinishedTask struct {
	Item  any
	Value any
	Err   error
}

// Result returns Value, or panics-the-Go-way by returning Err for the
// caller to handle — the idiomatic analogue of result() re-raising.
func (f FinishedTask) Result() (any, error) { return f.Value, f.Err }

// Func is a unit of work submitted to an Executor: it receives one item
// from the iterable and the already-bound args/kwargs via closure.
type Func func(ctx context.Context, item any) (any, error)

// Executor runs a Func over a slice of items, streaming results back in
// completion order (not submission order), honoring cancellation.
type Executor struct {
	maxWorkers int
}

// New builds a local worker-pool Executor. maxWorkers <= 1 degrades to
// in-line, single-goroutine execution, matching max_workers == 1's
// in-line fallback upstream. A distributed address is accepted for
// interface parity with DaskExecutor but is not dialed — spec.md treats
// the remote cluster as an external collaborator outside core scope;
// every Executor in this module runs its local pool.
func New(maxWorkers int, distributedAddress string) *Executor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Executor{maxWorkers: maxWorkers}
}

// AsCompleted runs fn over every item, returning a channel of
// FinishedTask delivered in completion order. The channel is closed once
// every item has been processed or ctx is cancelled. Cancelling ctx stops
// submitting new work; in-flight work is allowed to finish but its
// result is discarded (spec.md §5: "in-flight tasks complete or error
// out normally; their results are discarded").
func (e *Executor) AsCompleted(ctx context.Context, fn Func, items []any) <-chan FinishedTask {
	out := make(chan FinishedTask, len(items))

	if e.maxWorkers == 1 {
		go func() {
			defer close(out)
			for _, item := range items {
				if ctx.Err() != nil {
					return
				}
				v, err := fn(ctx, item)
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- FinishedTask{Item: item, Value: v, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}

	go func() {
		defer close(out)

		var wg sync.WaitGroup
		sem := make(chan struct{}, e.maxWorkers)

	submit:
		for _, item := range items {
			if ctx.Err() != nil {
				break submit
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				break submit
			}

			wg.Add(1)
			go func(item any) {
				defer wg.Done()
				defer func() { <-sem }()

				v, err := fn(ctx, item)
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- FinishedTask{Item: item, Value: v, Err: err}:
				case <-ctx.Done():
				}
			}(item)
		}
		wg.Wait()
	}()

	return out
}

// Run is a barrier convenience over AsCompleted: it collects every
// FinishedTask before returning, for callers that need all results
// together rather than streamed (e.g. the preprocessing batch, which
// must fully drain before any TileTaskBatch starts per spec.md §4.8).
func (e *Executor) Run(ctx context.Context, fn Func, items []any) []FinishedTask {
	results := make([]FinishedTask, 0, len(items))
	for ft := range e.AsCompleted(ctx, fn, items) {
		results = append(results, ft)
	}
	return results
}

// Group runs fn over items using an errgroup, returning the first error
// encountered (if any) and cancelling the group's derived context for
// the remaining in-flight goroutines — used where the caller wants
// fail-fast semantics instead of collect-everything. Unlike AsCompleted,
// a single failure here stops the whole batch.
func Group(ctx context.Context, maxWorkers int, items []any, fn func(ctx context.Context, item any) error) error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
