package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTerminalNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf)

	assert.Nil(t, r.Start(Options{Description: "quiet", Total: 3}))
	assert.Empty(t, buf.String(), "non-terminal output must degrade to no rendering")
}

func TestTerminalCountsAndDescription(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithWidth(100), WithMinInterval(0))

	bar := r.Start(Options{Description: "Test progress", Total: 5})
	for range 5 {
		bar.Add(1)
	}
	bar.Close()

	out := buf.String()
	assert.Contains(t, out, "Test progress")
	assert.Contains(t, out, "5/5")
	assert.Contains(t, out, "100%")
	assert.True(t, strings.HasSuffix(out, "\n"), "closing a row-0 bar ends the line")
}

func TestTerminalSetDescription(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithWidth(100), WithMinInterval(0))

	bar := r.Start(Options{Description: "first", Total: 2})
	bar.SetDescription("￨ second")
	bar.Close()

	assert.Contains(t, buf.String(), "￨ second")
}

func TestTerminalUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithWidth(80), WithMinInterval(0))

	bar := r.Start(Options{Description: "spinning", Total: Unknown})
	bar.Add(7)
	bar.Close()

	out := buf.String()
	assert.Contains(t, out, "spinning")
	assert.Contains(t, out, " 7 [")
	assert.NotContains(t, out, "7/")
}

func TestTerminalCloseIdempotent(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithMinInterval(0))

	bar := r.Start(Options{Total: 1})
	bar.Close()
	n := buf.Len()
	bar.Close()
	bar.Add(1)
	bar.SetDescription("late")

	assert.Equal(t, n, buf.Len(), "a closed bar must not draw")
}

func TestTerminalThrottlesRedraws(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithWidth(80), WithMinInterval(time.Hour))

	bar := r.Start(Options{Description: "slow", Total: 100})
	for range 100 {
		bar.Add(1)
	}
	before := strings.Count(buf.String(), "\r\x1b[2K")
	bar.Close()
	after := strings.Count(buf.String(), "\r\x1b[2K")

	assert.LessOrEqual(t, before, 2, "initial draw plus at most one throttled redraw")
	assert.Equal(t, before+1, after, "close always draws the final state")
	assert.Contains(t, buf.String(), "100/100")
}

func TestTerminalPositionClearsRow(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminal(&buf, WithForce(), WithMinInterval(0))

	bar := r.Start(Options{Description: "inner", Total: 1, Position: 2})
	bar.Close()

	out := buf.String()
	assert.Contains(t, out, "\x1b[2A")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestNopRenderer(t *testing.T) {
	assert.Nil(t, Nop{}.Start(Options{Total: 1}))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00", clock(0))
	assert.Equal(t, "01:05", clock(65*time.Second))
	assert.Equal(t, "1:01:01", clock(time.Hour+61*time.Second))
}
