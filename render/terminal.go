package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const (
	defaultWidth       = 80
	defaultMinInterval = 100 * time.Millisecond
	minBarWidth        = 10
)

var levelColors = map[string]string{
	"TRACE":   "6",
	"DEBUG":   "4",
	"WARNING": "3",
	"ERROR":   "1",
}

// Terminal draws a single-line bar per session on a terminal, in the
// spirit of tqdm: description, percentage, bar, counts, elapsed time,
// remaining time and rate.
type Terminal struct {
	out         io.Writer
	width       int
	minInterval time.Duration
	force       bool
	now         func() time.Time
}

// TerminalOption configures a [Terminal].
type TerminalOption func(*Terminal)

// WithWidth fixes the line width instead of asking the terminal.
func WithWidth(n int) TerminalOption {
	return func(t *Terminal) {
		if n < 0 {
			panic("render: WithWidth requires non-negative width")
		}
		t.width = n
	}
}

// WithMinInterval sets the minimum time between two redraws. Zero redraws
// on every update. Final states are always drawn.
func WithMinInterval(d time.Duration) TerminalOption {
	return func(t *Terminal) {
		t.minInterval = d
	}
}

// WithForce draws even when the output is not a terminal.
func WithForce() TerminalOption {
	return func(t *Terminal) {
		t.force = true
	}
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:         out,
		minInterval: defaultMinInterval,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start implements Renderer. It returns nil for outputs that are not
// terminals unless [WithForce] was given.
func (t *Terminal) Start(opts Options) Bar {
	if t.out == nil || (!t.force && !IsTerminal(t.out)) {
		return nil
	}
	if opts.Position < 0 {
		opts.Position = 0
	}

	progOpts := []progress.Option{progress.WithoutPercentage()}
	descStyle := lipgloss.NewStyle()
	if c, ok := levelColors[opts.Level]; ok {
		progOpts = append(progOpts, progress.WithSolidFill(c))
		descStyle = descStyle.Foreground(lipgloss.Color(c))
	} else {
		progOpts = append(progOpts, progress.WithDefaultGradient())
	}

	b := &terminalBar{
		t:         t,
		opts:      opts,
		desc:      opts.Description,
		started:   t.now(),
		width:     t.lineWidth(),
		prog:      progress.New(progOpts...),
		frames:    spinner.Dot.Frames,
		descStyle: descStyle,
		every:     &rate.Sometimes{Interval: t.minInterval},
	}
	b.draw()
	return b
}

func (t *Terminal) lineWidth() int {
	if t.width > 0 {
		return t.width
	}
	if f, ok := t.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

type terminalBar struct {
	mu        sync.Mutex
	t         *Terminal
	opts      Options
	desc      string
	n         int
	started   time.Time
	width     int
	prog      progress.Model
	frames    []string
	frame     int
	descStyle lipgloss.Style
	every     *rate.Sometimes
	closed    bool
}

func (b *terminalBar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.n += n
	b.maybeDraw()
}

func (b *terminalBar) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.desc = desc
	b.maybeDraw()
}

func (b *terminalBar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if p := b.opts.Position; p > 0 {
		// Rows below the cursor are cleared rather than left behind.
		b.writeRaw(fmt.Sprintf("%s\r\x1b[2K\x1b[%dA\r", strings.Repeat("\n", p), p))
		return
	}
	b.write(b.line())
	b.writeRaw("\n")
}

func (b *terminalBar) maybeDraw() {
	if b.t.minInterval <= 0 {
		b.write(b.line())
		return
	}
	b.every.Do(func() { b.write(b.line()) })
}

func (b *terminalBar) draw() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write(b.line())
}

func (b *terminalBar) line() string {
	elapsed := b.t.now().Sub(b.started)
	perSec := 0.0
	if s := elapsed.Seconds(); s > 0 {
		perSec = float64(b.n) / s
	}

	desc := b.desc
	if limit := b.width / 2; runewidth.StringWidth(desc) > limit {
		desc = runewidth.Truncate(desc, limit, "…")
	}
	head := ""
	if desc != "" {
		head = b.descStyle.Render(desc) + ": "
	}

	if b.opts.Total == Unknown || b.opts.Total < 0 {
		frame := b.frames[b.frame%len(b.frames)]
		b.frame++
		return fmt.Sprintf("%s%s %s [%s, %sit/s]",
			head, frame, humanize.Comma(int64(b.n)), clock(elapsed), humanize.FtoaWithDigits(perSec, 2))
	}

	pct := 1.0
	if b.opts.Total > 0 {
		pct = float64(b.n) / float64(b.opts.Total)
		if pct > 1 {
			pct = 1
		}
	}
	remaining := time.Duration(0)
	if perSec > 0 && b.n < b.opts.Total {
		remaining = time.Duration(float64(b.opts.Total-b.n) / perSec * float64(time.Second))
	}
	tail := fmt.Sprintf(" %s/%s [%s<%s, %sit/s]",
		humanize.Comma(int64(b.n)), humanize.Comma(int64(b.opts.Total)),
		clock(elapsed), clock(remaining), humanize.FtoaWithDigits(perSec, 2))
	percent := fmt.Sprintf("%3d%%", int(pct*100))

	barWidth := b.width - runewidth.StringWidth(desc) - runewidth.StringWidth(tail) - len(percent) - 4
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	b.prog.Width = barWidth
	return head + percent + "|" + b.prog.ViewAs(pct) + "|" + tail
}

func (b *terminalBar) write(line string) {
	if p := b.opts.Position; p > 0 {
		b.writeRaw(fmt.Sprintf("%s\r\x1b[2K%s\x1b[%dA\r", strings.Repeat("\n", p), line, p))
		return
	}
	b.writeRaw("\r\x1b[2K" + line)
}

func (b *terminalBar) writeRaw(s string) {
	// Rendering is best effort.
	_, _ = io.WriteString(b.t.out, s)
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
