package logmap

import (
	"fmt"
	"io"
	"time"

	"github.com/baxromumarov/logmap/config"
	"github.com/baxromumarov/logmap/render"
	"github.com/baxromumarov/logmap/sink"
)

// FromConfig builds a Logger writing to w from cfg. Extra options are
// applied after the configured ones.
func FromConfig(cfg config.Config, w io.Writer, opts ...Option) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := sink.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	h, err := sink.New(format, w, level.Slog())
	if err != nil {
		return nil, err
	}

	var r render.Renderer = render.Nop{}
	if cfg.Progress.Enabled {
		r = render.NewTerminal(w,
			render.WithMinInterval(cfg.Progress.MinInterval.Duration),
			render.WithWidth(cfg.Progress.Width),
		)
	}

	base := []Option{
		WithHandler(h),
		WithRenderer(r),
		WithPrecision(cfg.Precision),
		WithDefaultWorkers(cfg.Workers),
		WithMinLogworthy(time.Duration(cfg.MinSecondsLogworthy * float64(time.Second))),
		WithGlyphs(Glyphs{
			Vertical: cfg.Glyphs.Vertical,
			Top:      cfg.Glyphs.Top,
			Bottom:   cfg.Glyphs.Bottom,
		}),
		WithQuietDefault(cfg.Quiet),
	}
	return New(append(base, opts...)...), nil
}
