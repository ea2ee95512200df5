package logmap

import (
	"context"
	"io"
	"iter"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/baxromumarov/logmap/render"
)

// ProgressOption configures a progress iterator.
type ProgressOption func(*progressConfig)

type progressConfig struct {
	desc     string
	total    int
	hasTotal bool
	position int
	shuffle  bool
	rng      *rand.Rand
	render   bool
	severity Level
}

func newProgressConfig(opts []ProgressOption) progressConfig {
	cfg := progressConfig{desc: "iterating", render: true, severity: LevelDebug}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithDescription sets the text shown before the bar. Default "iterating".
func WithDescription(desc string) ProgressOption {
	return func(c *progressConfig) { c.desc = desc }
}

// WithTotal sets the number of items the bar expects. Without it the
// length of a slice is used, and other sources render a spinner.
func WithTotal(n int) ProgressOption {
	return func(c *progressConfig) {
		c.total = n
		c.hasTotal = true
	}
}

// WithPosition sets the terminal row, below the cursor, the bar is drawn on.
func WithPosition(row int) ProgressOption {
	if row < 0 {
		panic("logmap: WithPosition requires non-negative row")
	}
	return func(c *progressConfig) { c.position = row }
}

// WithShuffle iterates the items in random order. The source is read in
// full before the first item is yielded.
func WithShuffle() ProgressOption {
	return func(c *progressConfig) { c.shuffle = true }
}

// WithRand sets the random source used by WithShuffle.
func WithRand(r *rand.Rand) ProgressOption {
	return func(c *progressConfig) { c.rng = r }
}

// WithoutRender disables the bar. Items are still yielded unchanged.
func WithoutRender() ProgressOption {
	return func(c *progressConfig) { c.render = false }
}

// WithBarLevel sets the severity whose colour the bar is drawn in.
func WithBarLevel(level Level) ProgressOption {
	return func(c *progressConfig) { c.severity = level }
}

// Iterate returns a stream over items that drives a progress bar as it is
// consumed. The bar appears on the first call to Next and is released
// when the stream ends, fails or is closed. While it is live, lines logged
// on lg replace the bar's description instead of printing.
//
// The bar is suppressed, and logs go to the sink as usual, when lg is
// quiet or [WithoutRender] is given. Suppression never changes which
// items are yielded or their order.
func Iterate[T any](lg *Logger, items []T, opts ...ProgressOption) *Stream[T] {
	cfg := newProgressConfig(opts)
	if cfg.shuffle {
		items = shuffled(items, cfg.rng)
	}
	if !cfg.hasTotal {
		cfg.total = len(items)
	}
	return track(lg, FromSlice(items), cfg)
}

// IterateSeq is [Iterate] for an iterator of unknown length.
func IterateSeq[T any](lg *Logger, seq iter.Seq[T], opts ...ProgressOption) *Stream[T] {
	cfg := newProgressConfig(opts)
	if cfg.shuffle {
		return Iterate(lg, slices.Collect(seq), opts...)
	}
	if !cfg.hasTotal {
		cfg.total = render.Unknown
	}
	return track(lg, FromSeq(seq), cfg)
}

// IterateStream is [Iterate] for a stream. Closing the returned stream
// closes src.
func IterateStream[T any](lg *Logger, src *Stream[T], opts ...ProgressOption) *Stream[T] {
	cfg := newProgressConfig(opts)
	if !cfg.hasTotal {
		cfg.total = render.Unknown
	}
	if cfg.shuffle {
		src = shuffledStream(src, cfg.rng)
	}
	return track(lg, src, cfg)
}

func track[T any](lg *Logger, src *Stream[T], cfg progressConfig) *Stream[T] {
	desc := lg.innerPrefix() + cfg.desc

	var (
		sess     *session
		finished bool
	)
	finish := func() {
		finished = true
		if sess != nil {
			sess.close()
		}
		src.Close()
	}

	return &Stream[T]{
		next: func(ctx context.Context) (T, error) {
			var zero T
			if finished {
				return zero, io.EOF
			}
			if sess == nil {
				sess = lg.openSession(desc, cfg)
			}
			v, err := src.Next(ctx)
			if err != nil {
				finish()
				return zero, err
			}
			sess.add(1)
			lg.cfg.recorder.AddItems(1)
			return v, nil
		},
		stop: finish,
	}
}

func shuffled[T any](items []T, rng *rand.Rand) []T {
	out := slices.Clone(items)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng != nil {
		rng.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}

func shuffledStream[T any](src *Stream[T], rng *rand.Rand) *Stream[T] {
	var inner *Stream[T]
	return &Stream[T]{
		next: func(ctx context.Context) (T, error) {
			if inner == nil {
				items, err := src.ToSlice(ctx)
				if err != nil {
					var zero T
					return zero, err
				}
				inner = FromSlice(shuffled(items, rng))
			}
			return inner.Next(ctx)
		},
		stop: src.Close,
	}
}

// session is the live state behind one progress bar. Only a session that
// renders becomes the logger's active session.
type session struct {
	lg         *Logger
	bar        render.Bar
	suppressed bool
	prev       *session

	mu     sync.Mutex
	broken bool
	closed bool
}

func (l *Logger) openSession(desc string, cfg progressConfig) *session {
	s := &session{lg: l}

	l.mu.Lock()
	s.suppressed = l.quiet.top() || !cfg.render
	l.mu.Unlock()
	if s.suppressed {
		return s
	}

	s.guard(func() {
		s.bar = l.cfg.renderer.Start(render.Options{
			Description: desc,
			Total:       cfg.total,
			Position:    cfg.position,
			Level:       cfg.severity.String(),
		})
	})
	if s.bar == nil {
		s.suppressed = true
		return s
	}

	l.mu.Lock()
	s.prev = l.active
	l.active = s
	l.mu.Unlock()
	return s
}

// guard runs fn and disables the session if the renderer panics. A
// broken renderer never stops iteration.
func (s *session) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.broken = true
		}
	}()
	fn()
}

func (s *session) add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar == nil || s.broken || s.closed {
		return
	}
	s.guard(func() { s.bar.Add(n) })
}

func (s *session) describe(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bar == nil || s.broken || s.closed {
		return
	}
	s.guard(func() { s.bar.SetDescription(text) })
}

func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.bar != nil && !s.broken {
		s.guard(s.bar.Close)
	}
	s.mu.Unlock()

	if s.suppressed {
		return
	}
	l := s.lg
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == s {
		l.active = s.prev
		return
	}
	for p := l.active; p != nil; p = p.prev {
		if p.prev == s {
			p.prev = s.prev
			return
		}
	}
}
