package logmap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-runewidth"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/baxromumarov/logmap/metrics"
	"github.com/baxromumarov/logmap/render"
	"github.com/baxromumarov/logmap/sink"
)

const tracerName = "github.com/baxromumarov/logmap"

// Glyphs are the characters used to draw scope nesting.
type Glyphs struct {
	// Vertical is repeated once per nesting level in front of messages.
	Vertical string
	// Top marks a scope opening.
	Top string
	// Bottom marks a scope closing.
	Bottom string
}

// DefaultGlyphs draw nesting as "￨ ￨ ⎾ label".
var DefaultGlyphs = Glyphs{Vertical: "￨", Top: "⎾", Bottom: "⎿"}

// Logger writes indented log lines, times nested scopes and drives
// progress bars. Each Logger carries its own nesting state; use
// [Logger.Fork] to hand a logger to another goroutine.
//
// A Logger is safe for concurrent use, but concurrent scopes on the same
// Logger share one depth counter and their indentation interleaves.
type Logger struct {
	handler slog.Handler
	cfg     loggerConfig

	mu          sync.Mutex
	base        int // indentation inherited from the parent by Fork
	depth       int
	open        []time.Time
	lastFailure error
	quiet       quietStack
	active      *session
}

type loggerConfig struct {
	renderer     render.Renderer
	recorder     metrics.Recorder
	tracer       trace.Tracer
	glyphs       Glyphs
	precision    int
	lineLimit    int
	workers      int
	minLogworthy time.Duration
	now          func() time.Time
}

// Option configures a [Logger].
type Option func(*Logger)

// WithHandler sets the sink log lines are written to.
// The default is a [sink.TextHandler] on stderr at DEBUG.
func WithHandler(h slog.Handler) Option {
	if h == nil {
		panic("logmap: WithHandler requires non-nil handler")
	}
	return func(l *Logger) { l.handler = h }
}

// WithRenderer sets the progress bar renderer. The default draws on stderr
// when it is a terminal.
func WithRenderer(r render.Renderer) Option {
	if r == nil {
		panic("logmap: WithRenderer requires non-nil renderer")
	}
	return func(l *Logger) { l.cfg.renderer = r }
}

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(r metrics.Recorder) Option {
	if r == nil {
		panic("logmap: WithRecorder requires non-nil recorder")
	}
	return func(l *Logger) { l.cfg.recorder = r }
}

// WithTracer makes every scope a span of t.
func WithTracer(t trace.Tracer) Option {
	if t == nil {
		panic("logmap: WithTracer requires non-nil tracer")
	}
	return func(l *Logger) { l.cfg.tracer = t }
}

// WithTracerProvider makes every scope a span of a tracer obtained from tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	if tp == nil {
		panic("logmap: WithTracerProvider requires non-nil provider")
	}
	return WithTracer(tp.Tracer(tracerName))
}

// WithGlyphs sets the nesting glyphs. Empty fields keep their defaults.
func WithGlyphs(g Glyphs) Option {
	return func(l *Logger) {
		if g.Vertical != "" {
			l.cfg.glyphs.Vertical = g.Vertical
		}
		if g.Top != "" {
			l.cfg.glyphs.Top = g.Top
		}
		if g.Bottom != "" {
			l.cfg.glyphs.Bottom = g.Bottom
		}
	}
}

// WithPrecision sets the number of decimals used for durations. Default 1.
func WithPrecision(digits int) Option {
	if digits < 0 {
		panic("logmap: WithPrecision requires non-negative digits")
	}
	return func(l *Logger) { l.cfg.precision = digits }
}

// WithLineLimit pads or truncates every message to exactly n display
// columns. Zero disables the limit.
func WithLineLimit(n int) Option {
	if n < 0 {
		panic("logmap: WithLineLimit requires non-negative n")
	}
	return func(l *Logger) { l.cfg.lineLimit = n }
}

// WithDefaultWorkers sets the worker count parallel maps use when none is
// given. Zero derives it from the CPU count (see [DefaultWorkers]).
func WithDefaultWorkers(n int) Option {
	if n < 0 {
		panic("logmap: WithDefaultWorkers requires non-negative n")
	}
	return func(l *Logger) { l.cfg.workers = n }
}

// WithMinLogworthy suppresses the closing line of scopes that took less
// than d. Scopes can override it with [MinLogworthy].
func WithMinLogworthy(d time.Duration) Option {
	return func(l *Logger) { l.cfg.minLogworthy = d }
}

// WithQuietDefault starts the logger with quiet mode on or off.
func WithQuietDefault(enabled bool) Option {
	return func(l *Logger) { l.quiet.base = enabled }
}

// New creates a Logger.
func New(opts ...Option) *Logger {
	l := &Logger{
		handler: sink.NewText(os.Stderr, slog.LevelDebug),
		cfg: loggerConfig{
			renderer:  render.NewTerminal(os.Stderr),
			recorder:  metrics.NoopRecorder{},
			tracer:    noop.NewTracerProvider().Tracer(tracerName),
			glyphs:    DefaultGlyphs,
			precision: 1,
			now:       time.Now,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fork returns a logger that shares l's sink and settings but has its own
// nesting state, indented from l's current depth. Scopes opened on the
// fork never move l's depth.
func (l *Logger) Fork() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		handler: l.handler,
		cfg:     l.cfg,
		base:    l.base + l.depth,
		quiet:   quietStack{base: l.quiet.top()},
	}
}

// Depth returns the number of scopes currently open on l.
func (l *Logger) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth
}

// Handler returns the sink l writes to.
func (l *Logger) Handler() slog.Handler { return l.handler }

// Log writes msg at level, indented one step deeper than the innermost
// open scope's own lines.
func (l *Logger) Log(level Level, msg string) {
	l.log(level, msg, true)
}

// LogOuter writes msg at level aligned with the innermost open scope's
// opening and closing lines.
func (l *Logger) LogOuter(level Level, msg string) {
	l.log(level, msg, false)
}

func (l *Logger) Trace(msg string)   { l.Log(LevelTrace, msg) }
func (l *Logger) Debug(msg string)   { l.Log(LevelDebug, msg) }
func (l *Logger) Info(msg string)    { l.Log(LevelInfo, msg) }
func (l *Logger) Warning(msg string) { l.Log(LevelWarning, msg) }
func (l *Logger) Error(msg string)   { l.Log(LevelError, msg) }

func (l *Logger) Tracef(format string, args ...any) { l.Log(LevelTrace, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...any) { l.Log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.Log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...any) {
	l.Log(LevelWarning, fmt.Sprintf(format, args...))
}
func (l *Logger) Errorf(format string, args ...any) { l.Log(LevelError, fmt.Sprintf(format, args...)) }

func (l *Logger) log(level Level, msg string, inner bool) {
	l.mu.Lock()
	n := l.base + l.depth
	l.mu.Unlock()
	if !inner {
		n--
	}
	l.logAt(level, n, msg)
}

// logAt writes msg behind n nesting glyphs. Quiet mode drops it; a
// rendering progress session shows it as the bar description instead.
func (l *Logger) logAt(level Level, n int, msg string) {
	if msg == "" {
		return
	}
	l.mu.Lock()
	if l.quiet.top() {
		l.mu.Unlock()
		return
	}
	active := l.active
	l.mu.Unlock()

	text := l.prefix(n) + l.fit(msg)
	if active != nil {
		active.describe(text)
		return
	}
	l.emit(level, text)
}

// emit writes text to the sink unconditionally. Sink errors are ignored.
func (l *Logger) emit(level Level, text string) {
	ctx := context.Background()
	lvl := level.Slog()
	if !l.handler.Enabled(ctx, lvl) {
		return
	}
	_ = l.handler.Handle(ctx, slog.NewRecord(l.cfg.now(), lvl, text, 0))
}

func (l *Logger) prefix(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(l.cfg.glyphs.Vertical+" ", n)
}

func (l *Logger) fit(msg string) string {
	if l.cfg.lineLimit <= 0 {
		return msg
	}
	return runewidth.FillRight(runewidth.Truncate(msg, l.cfg.lineLimit, ""), l.cfg.lineLimit)
}

// innerPrefix is the indentation of a Log call made now.
func (l *Logger) innerPrefix() string {
	l.mu.Lock()
	n := l.base + l.depth
	l.mu.Unlock()
	return l.prefix(n)
}

var defaultLogger atomic.Pointer[Logger]

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, New())
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l == nil {
		panic("logmap: SetDefault requires non-nil logger")
	}
	defaultLogger.Store(l)
}

type ctxKey struct{}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or [Default].
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Default()
}
