package logmap

import "sync"

// quietStack holds nested quiet overrides above a base value. The top
// entry decides whether non-error output is suppressed.
type quietStack struct {
	base  bool
	stack []bool
}

func (q *quietStack) top() bool {
	if n := len(q.stack); n > 0 {
		return q.stack[n-1]
	}
	return q.base
}

// WithQuiet pushes a quiet override and returns the function that pops it.
// Call restore on every exit path, typically with defer:
//
//	defer lg.WithQuiet(true)()
//
// restore truncates the stack back to the length it had when WithQuiet was
// called, so overrides pushed inside the extent and never restored are
// discarded too. Calling restore more than once has no further effect.
//
// Scope failure lines are written even while quiet.
func (l *Logger) WithQuiet(enabled bool) (restore func()) {
	l.mu.Lock()
	n := len(l.quiet.stack)
	l.quiet.stack = append(l.quiet.stack, enabled)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if len(l.quiet.stack) > n {
				l.quiet.stack = l.quiet.stack[:n]
			}
		})
	}
}

// Quiet is WithQuiet(true).
func (l *Logger) Quiet() (restore func()) { return l.WithQuiet(true) }

// Loud is WithQuiet(false).
func (l *Logger) Loud() (restore func()) { return l.WithQuiet(false) }

// Verbosity silences output for level 0 and enables it for any other
// level.
func (l *Logger) Verbosity(level int) (restore func()) {
	return l.WithQuiet(level == 0)
}

// SetQuiet sets the value used when no override is active.
func (l *Logger) SetQuiet(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet.base = enabled
}

// IsQuiet reports whether non-error output is currently suppressed.
func (l *Logger) IsQuiet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quiet.top()
}
