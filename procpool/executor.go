package procpool

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/baxromumarov/logmap"
	"github.com/baxromumarov/logmap/chanx"
)

// ModeProcesses is the Mode of executors returned by [New].
const ModeProcesses = "processes"

// Option configures an [Executor].
type Option func(*options)

type options struct {
	path   string
	args   []string
	env    []string
	stderr io.Writer
	grace  time.Duration
}

// WithCommand sets the program started for each worker. It defaults to the
// running executable with no arguments. The program must call
// [MaybeServe] and register the same functions.
func WithCommand(path string, args ...string) Option {
	return func(o *options) {
		o.path = path
		o.args = args
	}
}

// WithEnv adds "KEY=value" entries to the workers' environment.
func WithEnv(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

// WithStderr sets where the workers' stdout and stderr go. Default os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithGrace sets how long a worker may take to exit once its request pipe
// is closed before it is killed. Default one second.
func WithGrace(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// Executor runs a registered function in worker processes. It implements
// [logmap.Executor] and is used with [logmap.ParallelMapWith] and friends.
type Executor[A, R any] struct {
	fn   *Func[A, R]
	opts options
}

var _ logmap.Executor[int, int] = (*Executor[int, int])(nil)

// New returns an executor for f.
func New[A, R any](f *Func[A, R], opts ...Option) *Executor[A, R] {
	if f == nil {
		panic("procpool: New requires a registered function")
	}
	o := options{stderr: os.Stderr, grace: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor[A, R]{fn: f, opts: o}
}

func (e *Executor[A, R]) Mode() string { return ModeProcesses }
func (e *Executor[A, R]) Name() string { return e.fn.name }

// Call runs the function in the calling process.
func (e *Executor[A, R]) Call(ctx context.Context, in A) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RemoteError{Func: e.fn.name, Kind: "PanicError", Message: fmt.Sprint(r), Panic: true}
		}
	}()
	return e.fn.fn(ctx, in)
}

// Start launches workers processes and feeds them jobs. If any worker
// fails to start, those already started are stopped and the error is
// returned. Cancelling ctx kills every worker.
func (e *Executor[A, R]) Start(ctx context.Context, workers int, jobs []logmap.Job[A]) (<-chan logmap.Outcome[R], error) {
	procs := make([]*proc, 0, workers)
	for range workers {
		p, err := e.spawn(ctx)
		if err != nil {
			for _, p := range procs {
				p.stop()
			}
			return nil, err
		}
		procs = append(procs, p)
	}

	queue := make(chan logmap.Job[A], len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	out := make(chan logmap.Outcome[R], len(jobs))
	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.stop()
			for job := range chanx.OrDone(ctx, queue) {
				start := time.Now()
				v, err := call[A, R](p, e.fn.name, job.Input)
				o := logmap.Outcome[R]{Index: job.Index, Value: v, Err: err, Elapsed: time.Since(start)}
				if chanx.Send(ctx, out, o) != nil {
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (e *Executor[A, R]) spawn(ctx context.Context) (*proc, error) {
	path := e.opts.path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}

	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("request pipe: %w", err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		_ = reqR.Close()
		_ = reqW.Close()
		return nil, fmt.Errorf("response pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, e.opts.args...)
	cmd.Env = append(append(os.Environ(), EnvWorker+"=1"), e.opts.env...)
	cmd.Stdout = e.opts.stderr
	cmd.Stderr = e.opts.stderr
	cmd.ExtraFiles = []*os.File{reqR, respW}
	cmd.WaitDelay = e.opts.grace

	err = cmd.Start()
	// The child holds its own copies of these ends.
	_ = reqR.Close()
	_ = respW.Close()
	if err != nil {
		_ = reqW.Close()
		_ = respR.Close()
		return nil, fmt.Errorf("start worker %s: %w", path, err)
	}
	return &proc{cmd: cmd, req: reqW, respFile: respR, resp: bufio.NewReader(respR)}, nil
}

// proc is one running worker process.
type proc struct {
	cmd      *exec.Cmd
	req      *os.File
	respFile *os.File
	resp     *bufio.Reader

	// broken holds the transport error after which the process is unusable.
	broken error
	once   sync.Once
}

func call[A, R any](p *proc, fn string, in A) (R, error) {
	var zero R
	if p.broken != nil {
		return zero, p.broken
	}

	payload, err := msgpack.Marshal(in)
	if err != nil {
		return zero, fmt.Errorf("encode input: %w", err)
	}
	req := request{Version: protocolVersion, ID: uuid.NewString(), Func: fn, Payload: payload}
	if err := writeFrame(p.req, req); err != nil {
		p.broken = fmt.Errorf("%w: %v", ErrWorkerExited, err)
		return zero, p.broken
	}

	var resp response
	if err := readFrame(p.resp, &resp); err != nil {
		p.broken = fmt.Errorf("%w: %v", ErrWorkerExited, err)
		return zero, p.broken
	}
	if resp.ID != req.ID {
		p.broken = fmt.Errorf("procpool: response %s for request %s", resp.ID, req.ID)
		return zero, p.broken
	}
	if resp.Error != "" {
		return zero, &RemoteError{Func: fn, Kind: resp.Kind, Message: resp.Error, Panic: resp.Panic}
	}

	var v R
	if err := msgpack.Unmarshal(resp.Payload, &v); err != nil {
		return zero, fmt.Errorf("decode result: %w", err)
	}
	return v, nil
}

// stop closes the request pipe, which ends the worker's serve loop, and
// waits for the process to exit.
func (p *proc) stop() {
	p.once.Do(func() {
		_ = p.req.Close()
		_ = p.cmd.Wait()
		_ = p.respFile.Close()
	})
}
