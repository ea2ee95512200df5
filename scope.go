package logmap

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/baxromumarov/logmap/metrics"
)

// Scope is a labelled, timed block of work opened by [Logger.Begin].
// Its opening line is written on Begin and its closing line, carrying the
// elapsed time, on [Scope.End]. Lines logged while the scope is open are
// indented one level deeper than the scope's own lines.
//
// Always pair Begin with End on every exit path:
//
//	s := lg.Begin("loading")
//	defer func() { err = s.End(err) }()
type Scope struct {
	lg       *Logger
	label    string
	level    int
	announce bool
	severity Level
	worthy   time.Duration
	digits   int
	span     trace.Span

	mu      sync.Mutex
	started time.Time
	ended   time.Time
	lastLap time.Time
	done    bool
}

// ScopeOption configures a [Scope].
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	announce     bool
	severity     Level
	minLogworthy time.Duration
	precision    int
	attrs        []attribute.KeyValue
}

// Quietly opens the scope without writing its opening and closing lines.
// It still nests and is still timed.
func Quietly() ScopeOption {
	return func(c *scopeConfig) { c.announce = false }
}

// AtLevel sets the severity of the scope's lines. Default is DEBUG.
func AtLevel(level Level) ScopeOption {
	return func(c *scopeConfig) { c.severity = level }
}

// MinLogworthy skips the closing line when the scope took less than d.
func MinLogworthy(d time.Duration) ScopeOption {
	return func(c *scopeConfig) { c.minLogworthy = d }
}

// Precision sets the number of decimals kept in the scope's duration.
func Precision(digits int) ScopeOption {
	if digits < 0 {
		panic("logmap: Precision requires non-negative digits")
	}
	return func(c *scopeConfig) { c.precision = digits }
}

// SpanAttributes adds attributes to the scope's trace span.
func SpanAttributes(kv ...attribute.KeyValue) ScopeOption {
	return func(c *scopeConfig) { c.attrs = append(c.attrs, kv...) }
}

// Begin opens a scope. See [Scope].
func (l *Logger) Begin(label string, opts ...ScopeOption) *Scope {
	_, s := l.BeginContext(context.Background(), label, opts...)
	return s
}

// BeginContext opens a scope whose trace span is a child of the span in
// ctx. The returned context carries the new span and l.
func (l *Logger) BeginContext(ctx context.Context, label string, opts ...ScopeOption) (context.Context, *Scope) {
	cfg := scopeConfig{
		announce:     true,
		severity:     LevelDebug,
		minLogworthy: l.cfg.minLogworthy,
		precision:    l.cfg.precision,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	now := l.cfg.now()
	l.mu.Lock()
	if l.depth == 0 {
		l.lastFailure = nil
	}
	l.open = append(l.open, now)
	l.depth++
	level := l.base + l.depth
	l.mu.Unlock()

	attrs := append([]attribute.KeyValue{
		attribute.String("logmap.label", label),
		attribute.Int("logmap.depth", level),
	}, cfg.attrs...)
	ctx, span := l.cfg.tracer.Start(ctx, label, trace.WithAttributes(attrs...))

	s := &Scope{
		lg:       l,
		label:    label,
		level:    level,
		announce: cfg.announce,
		severity: cfg.severity,
		worthy:   cfg.minLogworthy,
		digits:   cfg.precision,
		span:     span,
		started:  now,
		lastLap:  now,
	}
	if s.announce {
		l.logAt(s.severity, level-1, s.Desc())
	}
	return WithLogger(ctx, l), s
}

// Timed runs fn inside a scope and ends the scope with fn's error. A panic
// in fn ends the scope as failed with a [*PanicError] and is re-raised.
func (l *Logger) Timed(ctx context.Context, label string, fn func(context.Context) error, opts ...ScopeOption) error {
	ctx, s := l.BeginContext(ctx, label, opts...)
	defer func() {
		if r := recover(); r != nil {
			_ = s.End(newPanicError(r))
			panic(r)
		}
	}()
	return s.End(fn(ctx))
}

// End closes the scope and returns err unchanged.
//
// With a nil err the scope is popped and, if it announces and lasted at
// least its minimum logworthy duration, the closing line is written.
//
// With a non-nil err the logger's nesting is reset to zero and an ERROR
// line "{kind} {message}" is written, even in quiet mode and while a
// progress bar is live. An error already reported by an inner scope is
// not reported again by the scopes it propagates through.
//
// Only the first call has any effect.
func (s *Scope) End(err error) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return err
	}
	s.done = true
	s.ended = s.lg.cfg.now()
	s.mu.Unlock()

	if err != nil {
		s.fail(err)
		return err
	}

	l := s.lg
	l.mu.Lock()
	if n := len(l.open); n > 0 {
		l.open = l.open[:n-1]
	}
	if l.depth > 0 {
		l.depth--
	}
	if l.depth == 0 {
		l.lastFailure = nil
	}
	l.mu.Unlock()

	d := s.Duration()
	l.cfg.recorder.ObserveScopeDuration(s.label, d)
	l.cfg.recorder.IncScopeResult(metrics.ResultSuccess)
	s.span.SetAttributes(attribute.Float64("logmap.duration_seconds", d.Seconds()))
	s.span.End()

	if s.announce && (s.worthy <= 0 || d >= s.worthy) {
		l.logAt(s.severity, s.level-1, s.Desc())
	}
	return nil
}

func (s *Scope) fail(err error) {
	l := s.lg
	l.mu.Lock()
	l.depth = 0
	l.open = nil
	reported := l.lastFailure != nil && errors.Is(err, l.lastFailure)
	l.lastFailure = err
	l.mu.Unlock()

	result := metrics.ResultFailure
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result = metrics.ResultCanceled
	}
	l.cfg.recorder.ObserveScopeDuration(s.label, s.Duration())
	l.cfg.recorder.IncScopeResult(result)
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.End()

	if !reported {
		l.emit(LevelError, l.prefix(s.level)+l.fit(ErrorKind(err)+" "+errorMessage(err)))
	}
}

// ErrorKind names the dynamic type of err without pointer or package path,
// for example "PanicError" or "errorString".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return strings.TrimPrefix(t.String(), "*")
}

func errorMessage(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe.Summary()
	}
	return err.Error()
}

// Label returns the label the scope was opened with.
func (s *Scope) Label() string { return s.label }

// Level returns the nesting level of the scope; 1 for an outermost scope.
func (s *Scope) Level() int { return s.level }

// Duration returns the time the scope took, or has taken so far, rounded
// to the scope's precision.
func (s *Scope) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.ended
	if end.IsZero() {
		end = s.lg.cfg.now()
	}
	return roundDuration(end.Sub(s.started), s.digits)
}

// Desc returns the scope's opening line while it is open and its closing
// line once it has ended.
func (s *Scope) Desc() string {
	s.mu.Lock()
	ended := !s.ended.IsZero()
	s.mu.Unlock()
	g := s.lg.cfg.glyphs
	if !ended {
		return strings.TrimSpace(g.Top + " " + s.label)
	}
	return strings.TrimSpace(g.Bottom + " " + HumanizeDuration(s.Duration()))
}

// Lap marks a lap and returns the time since the previous lap, or since
// the scope opened for the first lap.
func (s *Scope) Lap() time.Duration {
	now := s.lg.cfg.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	d := now.Sub(s.lastLap)
	s.lastLap = now
	return roundDuration(d, s.digits)
}

// LapDuration returns the time since the last lap without marking a new
// one.
func (s *Scope) LapDuration() time.Duration {
	now := s.lg.cfg.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return roundDuration(now.Sub(s.lastLap), s.digits)
}
