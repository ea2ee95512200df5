package logmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{-time.Second, "0 seconds"},
		{400 * time.Millisecond, "0.4 seconds"},
		{time.Second, "1 second"},
		{1234 * time.Millisecond, "1.23 seconds"},
		{59 * time.Second, "59 seconds"},
		{time.Minute, "1 minute"},
		{65300 * time.Millisecond, "1 minute and 5.3 seconds"},
		{2*time.Hour + time.Minute + 3*time.Second, "2 hours, 1 minute and 3 seconds"},
		{26 * time.Hour, "1 day and 2 hours"},
		{8*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second, "1 week, 1 day and 3 hours"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeDuration(tt.in))
		})
	}
}

func TestRoundDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, roundDuration(1549*time.Millisecond, 1))
	assert.Equal(t, 2*time.Second, roundDuration(1500*time.Millisecond, 0))
	assert.Equal(t, 1230*time.Millisecond, roundDuration(1234*time.Millisecond, 2))
}
