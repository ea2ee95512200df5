package logmap

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type timeUnit struct {
	seconds          float64
	singular, plural string
}

var timeUnits = []timeUnit{
	{60 * 60 * 24 * 7 * 52, "year", "years"},
	{60 * 60 * 24 * 7, "week", "weeks"},
	{60 * 60 * 24, "day", "days"},
	{60 * 60, "hour", "hours"},
	{60, "minute", "minutes"},
	{1, "second", "seconds"},
}

// HumanizeDuration renders d the way scope closing lines show it:
// "0.4 seconds", "1 minute and 5.3 seconds", "2 hours, 1 minute and 3 seconds".
// Seconds keep at most two decimals and at most three units are shown.
func HumanizeDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return pluralize(secs, "second", "seconds")
	}

	var parts []string
	rest := secs
	for i, u := range timeUnits {
		count := rest / u.seconds
		rest = math.Mod(rest, u.seconds)
		if i < len(timeUnits)-1 {
			count = math.Floor(count)
		}
		if roundTo(count, 2) == 0 {
			continue
		}
		parts = append(parts, pluralize(count, u.singular, u.plural))
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return joinWords(parts)
}

func pluralize(count float64, singular, plural string) string {
	count = roundTo(count, 2)
	word := plural
	if count == 1 {
		word = singular
	}
	return humanize.FtoaWithDigits(count, 2) + " " + word
}

func joinWords(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func roundTo(x float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(x*p) / p
}

// roundDuration rounds d to the given number of decimal places of a second.
func roundDuration(d time.Duration, digits int) time.Duration {
	return time.Duration(math.Round(roundTo(d.Seconds(), digits) * float64(time.Second)))
}
