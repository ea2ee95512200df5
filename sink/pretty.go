package sink

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	clog "github.com/charmbracelet/log"
)

// NewPretty returns a charmbracelet/log console logger used as a
// slog.Handler. TRACE records get their own "TRAC" label.
func NewPretty(w io.Writer, level slog.Leveler) slog.Handler {
	minLevel := slog.LevelInfo
	if level != nil {
		minLevel = level.Level()
	}
	logger := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           clog.Level(minLevel),
	})

	styles := clog.DefaultStyles()
	styles.Levels[clog.Level(LevelTrace)] = lipgloss.NewStyle().
		SetString("TRAC").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("6"))
	logger.SetStyles(styles)
	return logger
}
