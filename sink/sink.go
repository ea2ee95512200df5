// Package sink provides the log sinks logmap writes to. Every sink is a
// [log/slog.Handler], so any slog-compatible handler can be used in their
// place.
//
// Three formats are available:
//
//   - [NewText]: the classic format, the message rendered in its level's
//     colour followed by a cyan " @ timestamp" suffix.
//   - [NewPretty]: a charmbracelet/log console logger.
//   - [NewJSON]: one JSON object per line.
//
// [Recorder] keeps entries in memory and is meant for tests.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is the slog level used for TRACE messages. It sits below
// [slog.LevelDebug].
const LevelTrace = slog.Level(-8)

// TimeFormat is the timestamp layout of the text sink.
const TimeFormat = "2006-01-02 15:04:05,000"

// Format selects a sink implementation.
type Format string

const (
	FormatText   Format = "text"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid sink format: %q (expected: text|pretty|json)", s)
	}
}

// New builds the sink for format writing to w with the given minimum level.
func New(format Format, w io.Writer, level slog.Leveler) (slog.Handler, error) {
	switch format {
	case FormatText, "":
		return NewText(w, level), nil
	case FormatPretty:
		return NewPretty(w, level), nil
	case FormatJSON:
		return NewJSON(w, level), nil
	default:
		return nil, fmt.Errorf("invalid sink format: %q", string(format))
	}
}

// LevelName returns the upper-case name of a slog level, naming
// [LevelTrace] "TRACE" and [slog.LevelWarn] "WARNING".
func LevelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}
