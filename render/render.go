// Package render draws progress bars for logmap's progress iterator.
//
// A [Renderer] starts one [Bar] per progress session. The bar is told about
// completed items with [Bar.Add], may have its description replaced while
// it is live with [Bar.SetDescription], and releases its terminal row on
// [Bar.Close]. Renderers never fail: when the output cannot show a bar
// (not a terminal, rendering disabled) Start returns nil and the session
// runs without one, so log lines reach the sink instead of a bar nobody
// sees.
package render

// Unknown is the Total of a session whose length is not known. Such
// sessions render a spinner and a running count instead of a bar.
const Unknown = -1

// Options describe a progress session.
type Options struct {
	Description string

	// Total number of items, or [Unknown].
	Total int

	// Position is the terminal row offset below the cursor; 0 is the
	// current line.
	Position int

	// Level names the severity colour of the session
	// (TRACE, DEBUG, INFO, WARNING or ERROR).
	Level string
}

// Bar is a live progress display.
type Bar interface {
	// Add records n more completed items.
	Add(n int)

	// SetDescription replaces the text shown before the bar.
	SetDescription(desc string)

	// Close draws the final state and releases the render line.
	// Close is idempotent.
	Close()
}

// Renderer creates bars. Start returns nil when no bar can be shown.
type Renderer interface {
	Start(opts Options) Bar
}

// Nop is a Renderer that never shows a bar.
type Nop struct{}

// Start implements Renderer.
func (Nop) Start(Options) Bar { return nil }
