package logmap

import (
	"sync"
	"testing"
	"time"

	"github.com/baxromumarov/logmap/metrics"
	"github.com/baxromumarov/logmap/render"
	"github.com/baxromumarov/logmap/sink"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func withClock(c *fakeClock) Option {
	return func(l *Logger) { l.cfg.now = c.Now }
}

type fakeBar struct {
	mu     sync.Mutex
	opts   render.Options
	added  int
	descs  []string
	closed int
}

func (b *fakeBar) Add(n int) {
	b.mu.Lock()
	b.added += n
	b.mu.Unlock()
}

func (b *fakeBar) SetDescription(desc string) {
	b.mu.Lock()
	b.descs = append(b.descs, desc)
	b.mu.Unlock()
}

func (b *fakeBar) Close() {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
}

func (b *fakeBar) snapshot() (added int, descs []string, closed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.added, append([]string(nil), b.descs...), b.closed
}

type fakeRenderer struct {
	mu   sync.Mutex
	bars []*fakeBar
}

func (r *fakeRenderer) Start(opts render.Options) render.Bar {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := &fakeBar{opts: opts}
	r.bars = append(r.bars, b)
	return b
}

func (r *fakeRenderer) started() []*fakeBar {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeBar(nil), r.bars...)
}

type panickyRenderer struct{}

func (panickyRenderer) Start(render.Options) render.Bar { panic("no terminal") }

type countingRecorder struct {
	metrics.NoopRecorder

	mu      sync.Mutex
	scopes  map[metrics.ResultLabel]int
	jobs    map[metrics.ResultLabel]int
	items   int
	workers map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		scopes:  make(map[metrics.ResultLabel]int),
		jobs:    make(map[metrics.ResultLabel]int),
		workers: make(map[string]int),
	}
}

func (r *countingRecorder) IncScopeResult(result metrics.ResultLabel) {
	r.mu.Lock()
	r.scopes[result]++
	r.mu.Unlock()
}

func (r *countingRecorder) IncJobResult(_ string, result metrics.ResultLabel) {
	r.mu.Lock()
	r.jobs[result]++
	r.mu.Unlock()
}

func (r *countingRecorder) SetWorkers(mode string, n int) {
	r.mu.Lock()
	r.workers[mode] = n
	r.mu.Unlock()
}

func (r *countingRecorder) AddItems(n int) {
	r.mu.Lock()
	r.items += n
	r.mu.Unlock()
}

type testLogger struct {
	*Logger
	sink   *sink.Recorder
	bars   *fakeRenderer
	clock  *fakeClock
	record *countingRecorder
}

func newTestLogger(t *testing.T, opts ...Option) testLogger {
	t.Helper()
	tl := testLogger{
		sink:   sink.NewRecorder(),
		bars:   &fakeRenderer{},
		clock:  newFakeClock(),
		record: newCountingRecorder(),
	}
	base := []Option{
		WithHandler(tl.sink),
		WithRenderer(tl.bars),
		WithRecorder(tl.record),
		withClock(tl.clock),
	}
	tl.Logger = New(append(base, opts...)...)
	return tl
}

// pinParallelism makes availableParallelism report n for the test.
func pinParallelism(t *testing.T, n int) {
	t.Helper()
	prev := availableParallelism
	availableParallelism = func() int { return n }
	t.Cleanup(func() { availableParallelism = prev })
}
