package logmap

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/baxromumarov/logmap/chanx"
	"github.com/baxromumarov/logmap/metrics"
)

// availableParallelism is a variable so tests can pin it.
var availableParallelism = func() int { return runtime.GOMAXPROCS(0) }

// DefaultWorkers returns the worker count used when none is configured:
// every CPU but two on machines with more than three, fewer on smaller
// ones, and never less than one.
func DefaultWorkers() int {
	return defaultWorkers(availableParallelism())
}

func defaultWorkers(cpus int) int {
	switch {
	case cpus <= 1:
		return 1
	case cpus == 2:
		return 2
	case cpus == 3:
		return 2
	default:
		return cpus - 2
	}
}

// MapOption configures [ParallelMap].
type MapOption func(*mapConfig)

type mapConfig struct {
	workers    int
	workersSet bool
	limit      int
	shuffle    bool
	rng        *rand.Rand
	desc       string
	name       string
	ordered    bool
	progress   bool
	position   int
}

// WithWorkers sets the number of workers. The count is clamped to the
// available parallelism and the number of inputs; values below one mean
// one, which runs the map sequentially.
func WithWorkers(n int) MapOption {
	return func(c *mapConfig) {
		c.workers = max(n, 1)
		c.workersSet = true
	}
}

// WithLimit maps only the first n inputs, after shuffling.
func WithLimit(n int) MapOption {
	if n < 0 {
		panic("logmap: WithLimit requires non-negative n")
	}
	return func(c *mapConfig) { c.limit = n }
}

// WithMapShuffle maps the inputs in random order. With [WithLimit] this
// maps a random sample.
func WithMapShuffle() MapOption {
	return func(c *mapConfig) { c.shuffle = true }
}

// WithMapRand sets the random source used by WithMapShuffle.
func WithMapRand(r *rand.Rand) MapOption {
	return func(c *mapConfig) { c.rng = r }
}

// WithMapDescription replaces the default bar description
// "mapping {name} to {n} objects".
func WithMapDescription(desc string) MapOption {
	return func(c *mapConfig) { c.desc = desc }
}

// WithName sets the function name used in the description and in
// [JobError]s.
func WithName(name string) MapOption {
	return func(c *mapConfig) { c.name = name }
}

// WithOrdered makes the pooled path yield results in input order. Results
// that complete early are held until every earlier one has been yielded.
func WithOrdered() MapOption {
	return func(c *mapConfig) { c.ordered = true }
}

// WithoutProgress disables the progress bar.
func WithoutProgress() MapOption {
	return func(c *mapConfig) { c.progress = false }
}

// WithMapPosition sets the terminal row of the progress bar.
func WithMapPosition(row int) MapOption {
	if row < 0 {
		panic("logmap: WithMapPosition requires non-negative row")
	}
	return func(c *mapConfig) { c.position = row }
}

// ParallelMap applies fn to every input on a pool of goroutines and
// returns a stream of the results, driving a progress bar as they arrive.
//
// With one effective worker, or at most one input, fn runs in the
// consuming goroutine and results come in input order. Otherwise results
// come in completion order unless [WithOrdered] is given.
//
// A failing input surfaces from Next as a [*JobError] naming the input's
// index; results yielded before it are unaffected and the stream ends.
// Closing the stream early cancels outstanding jobs and waits for the
// workers to exit.
func ParallelMap[A, R any](ctx context.Context, lg *Logger, fn func(context.Context, A) (R, error), inputs []A, opts ...MapOption) *Stream[R] {
	return ParallelMapWith(ctx, lg, Goroutines(fn), inputs, opts...)
}

// ParallelMapWith is [ParallelMap] for any [Executor], for example one
// that isolates jobs in worker processes.
func ParallelMapWith[A, R any](ctx context.Context, lg *Logger, ex Executor[A, R], inputs []A, opts ...MapOption) *Stream[R] {
	cfg := mapConfig{progress: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	items := prepareInputs(inputs, cfg)
	workers := lg.resolveWorkers(cfg, len(items))

	name := cfg.name
	if name == "" {
		name = ex.Name()
	}
	desc := cfg.desc
	if desc == "" {
		desc = fmt.Sprintf("mapping %s to %d objects", name, len(items))
	}
	if workers > 1 {
		desc = fmt.Sprintf("%s [%dx]", desc, workers)
	}

	popts := []ProgressOption{
		WithDescription(desc),
		WithTotal(len(items)),
		WithPosition(cfg.position),
	}
	if !cfg.progress {
		popts = append(popts, WithoutRender())
	}

	lg.cfg.recorder.SetWorkers(ex.Mode(), workers)
	if workers <= 1 || len(items) <= 1 {
		return IterateStream(lg, sequential(lg, ex, items, name), popts...)
	}
	return IterateStream(lg, pooled(ctx, lg, ex, items, workers, name, cfg.ordered), popts...)
}

// MapAll runs [ParallelMap] to completion and returns the results. On
// failure it returns the results yielded before the failure and the error.
func MapAll[A, R any](ctx context.Context, lg *Logger, fn func(context.Context, A) (R, error), inputs []A, opts ...MapOption) ([]R, error) {
	return ParallelMap(ctx, lg, fn, inputs, opts...).ToSlice(ctx)
}

// MapAllWith is [MapAll] for any [Executor].
func MapAllWith[A, R any](ctx context.Context, lg *Logger, ex Executor[A, R], inputs []A, opts ...MapOption) ([]R, error) {
	return ParallelMapWith(ctx, lg, ex, inputs, opts...).ToSlice(ctx)
}

// RunAll runs [ParallelMap] to completion for its side effects.
func RunAll[A, R any](ctx context.Context, lg *Logger, fn func(context.Context, A) (R, error), inputs []A, opts ...MapOption) error {
	_, err := ParallelMap(ctx, lg, fn, inputs, opts...).Count(ctx)
	return err
}

// RunAllWith is [RunAll] for any [Executor].
func RunAllWith[A, R any](ctx context.Context, lg *Logger, ex Executor[A, R], inputs []A, opts ...MapOption) error {
	_, err := ParallelMapWith(ctx, lg, ex, inputs, opts...).Count(ctx)
	return err
}

func prepareInputs[A any](inputs []A, cfg mapConfig) []A {
	items := inputs
	if cfg.shuffle {
		items = shuffled(items, cfg.rng)
	}
	if cfg.limit > 0 && cfg.limit < len(items) {
		items = items[:cfg.limit]
	}
	return items
}

func (l *Logger) resolveWorkers(cfg mapConfig, n int) int {
	w := cfg.workers
	if !cfg.workersSet {
		w = l.cfg.workers
		if w <= 0 {
			w = DefaultWorkers()
		}
	}
	w = min(w, availableParallelism(), n)
	return max(w, 1)
}

func sequential[A, R any](lg *Logger, ex Executor[A, R], items []A, name string) *Stream[R] {
	var idx int
	return NewStream(func(ctx context.Context) (R, error) {
		var zero R
		if idx >= len(items) {
			return zero, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		i := idx
		idx++

		start := time.Now()
		v, err := ex.Call(ctx, items[i])
		lg.recordJob(ex.Mode(), time.Since(start), err)
		if err != nil {
			return zero, &JobError{Job: JobInfo{Index: i, Name: name}, Err: err}
		}
		return v, nil
	})
}

func pooled[A, R any](ctx context.Context, lg *Logger, ex Executor[A, R], items []A, workers int, name string, ordered bool) *Stream[R] {
	var (
		outcomes <-chan Outcome[R]
		cancel   context.CancelFunc
		pctx     context.Context
		pending  outcomeHeap[R]
		next     int
		received int
	)

	deliver := func(o Outcome[R]) (R, error) {
		if o.Err != nil {
			var zero R
			return zero, &JobError{Job: JobInfo{Index: o.Index, Name: name}, Err: o.Err}
		}
		return o.Value, nil
	}

	s := &Stream[R]{}
	s.next = func(nctx context.Context) (R, error) {
		var zero R
		if outcomes == nil {
			jobs := make([]Job[A], len(items))
			for i, in := range items {
				jobs[i] = Job[A]{Index: i, Input: in}
			}
			pctx, cancel = context.WithCancel(ctx)
			ch, err := ex.Start(pctx, workers, jobs)
			if err != nil {
				cancel()
				return zero, fmt.Errorf("start %s: %w", ex.Mode(), err)
			}
			outcomes = ch
		}

		for {
			if ordered && pending.Len() > 0 && pending[0].Index == next {
				next++
				return deliver(heap.Pop(&pending).(Outcome[R]))
			}

			o, ok, err := chanx.Recv(nctx, outcomes)
			if err != nil {
				return zero, err
			}
			if !ok {
				if received < len(items) {
					if err := pctx.Err(); err != nil {
						return zero, err
					}
					return zero, ErrStreamGap
				}
				return zero, io.EOF
			}
			received++
			lg.recordJob(ex.Mode(), o.Elapsed, o.Err)

			if !ordered {
				return deliver(o)
			}
			heap.Push(&pending, o)
		}
	}
	s.stop = func() {
		if cancel != nil {
			cancel()
		}
		// outcomes is nil when Start failed.
		if outcomes != nil {
			chanx.Drain(outcomes)
		}
	}
	return s
}

func (l *Logger) recordJob(mode string, d time.Duration, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailure
	}
	l.cfg.recorder.ObserveJobDuration(mode, d)
	l.cfg.recorder.IncJobResult(mode, result)
}
