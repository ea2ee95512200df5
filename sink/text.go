package sink

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	traceColor   = color.New(color.FgCyan)
	debugColor   = color.New(color.FgBlue, color.Bold)
	infoColor    = color.New(color.Reset)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	stampColor   = color.New(color.FgCyan)
)

// TextHandler writes one line per record: the message in its level colour,
// any attributes as key=value pairs, then " @ " and the timestamp.
type TextHandler struct {
	mu       *sync.Mutex
	w        io.Writer
	level    slog.Leveler
	colorize bool
	attrs    []slog.Attr
	group    string
}

// NewText returns a [TextHandler]. Colour is used only when w is
// os.Stdout or os.Stderr and the environment allows it (see
// [color.NoColor]).
func NewText(w io.Writer, level slog.Leveler) *TextHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &TextHandler{
		mu:       &sync.Mutex{},
		w:        w,
		level:    level,
		colorize: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

// Enabled implements slog.Handler.
func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.paint(levelColor(r.Level), r.Message))

	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		sb.WriteByte(' ')
		if h.group != "" {
			sb.WriteString(h.group)
			sb.WriteByte('.')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	if !r.Time.IsZero() {
		sb.WriteString(h.paint(stampColor, " @ "+r.Time.Format(TimeFormat)))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *TextHandler) paint(c *color.Color, s string) string {
	if !h.colorize {
		return s
	}
	return c.Sprint(s)
}

func levelColor(l slog.Level) *color.Color {
	switch LevelName(l) {
	case "TRACE":
		return traceColor
	case "DEBUG":
		return debugColor
	case "WARNING":
		return warningColor
	case "ERROR":
		return errorColor
	default:
		return infoColor
	}
}
