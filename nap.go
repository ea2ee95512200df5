package logmap

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"
)

// Nap sleeps for a random duration below one second, rounded to the
// logger's precision, then logs "napping for X seconds". It returns early
// with ctx's error when ctx is done, and logs nothing in that case.
func (l *Logger) Nap(ctx context.Context) (time.Duration, error) {
	return l.NapUpTo(ctx, time.Second)
}

// NapUpTo is [Logger.Nap] with a random duration below upTo.
func (l *Logger) NapUpTo(ctx context.Context, upTo time.Duration) (time.Duration, error) {
	if upTo < 0 {
		upTo = 0
	}
	secs := roundTo(rand.Float64()*upTo.Seconds(), l.cfg.precision)
	d := time.Duration(secs * float64(time.Second))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return d, ctx.Err()
	}
	l.Debug("napping for " + humanize.FtoaWithDigits(secs, l.cfg.precision) + " seconds")
	return d, nil
}
