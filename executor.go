package logmap

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"time"
)

// Job is one unit of work shipped to a worker: an input and its position
// in the prepared input list.
type Job[A any] struct {
	Index int
	Input A
}

// Outcome is the result of one Job.
type Outcome[R any] struct {
	Index   int
	Value   R
	Err     error
	Elapsed time.Duration
}

// Executor runs a mapped function behind an isolation boundary.
//
// Implementations must deliver exactly one Outcome per started job, in
// completion order, and close the channel once every job has reported or
// ctx is done. Cancelling ctx must shut the workers down.
type Executor[A, R any] interface {
	// Mode names the isolation boundary, for example "goroutines".
	Mode() string

	// Name is the mapped function's name.
	Name() string

	// Call runs fn on one input in the calling goroutine.
	Call(ctx context.Context, in A) (R, error)

	// Start dispatches jobs to workers.
	Start(ctx context.Context, workers int, jobs []Job[A]) (<-chan Outcome[R], error)
}

// ModeGoroutines is the Mode of the executor returned by [Goroutines].
const ModeGoroutines = "goroutines"

// Goroutines returns an executor that runs fn on a [Pool] of goroutines.
// Extra arguments are passed by closing over them.
func Goroutines[A, R any](fn func(context.Context, A) (R, error)) Executor[A, R] {
	if fn == nil {
		panic("logmap: Goroutines requires non-nil fn")
	}
	return &goroutineExecutor[A, R]{fn: fn, name: FuncName(fn)}
}

type goroutineExecutor[A, R any] struct {
	fn   func(context.Context, A) (R, error)
	name string
}

func (e *goroutineExecutor[A, R]) Mode() string { return ModeGoroutines }
func (e *goroutineExecutor[A, R]) Name() string { return e.name }

func (e *goroutineExecutor[A, R]) Call(ctx context.Context, in A) (R, error) {
	return callRecover(ctx, e.fn, in)
}

func (e *goroutineExecutor[A, R]) Start(ctx context.Context, workers int, jobs []Job[A]) (<-chan Outcome[R], error) {
	out := make(chan Outcome[R], len(jobs))
	pool := NewPool(ctx, workers, WithQueueSize(len(jobs)))
	for _, job := range jobs {
		if err := pool.Submit(jobTask(e.fn, job, out)); err != nil {
			break
		}
	}
	go func() {
		// Job errors already travel on out.
		_ = pool.Close()
		close(out)
	}()
	return out, nil
}

// jobTask runs fn on one job and sends its outcome to out, which must have
// room for it. The task returns the job's error so the pool counts it.
func jobTask[A, R any](fn func(context.Context, A) (R, error), job Job[A], out chan<- Outcome[R]) Task {
	return func(ctx context.Context) error {
		start := time.Now()
		v, err := callRecover(ctx, fn, job.Input)
		out <- Outcome[R]{Index: job.Index, Value: v, Err: err, Elapsed: time.Since(start)}
		return err
	}
}

// callRecover calls fn and turns a panic into a [*PanicError].
func callRecover[A, R any](ctx context.Context, fn func(context.Context, A) (R, error), in A) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return fn(ctx, in)
}

// FuncName returns the short name of a function value, such as "square"
// for main.square, or "func" for an anonymous function.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "func"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if isDigits(name) || (strings.HasPrefix(name, "func") && isDigits(name[len("func"):])) {
		return "func"
	}
	return name
}

func isDigits(s string) bool {
	return strings.TrimLeft(s, "0123456789") == ""
}
