package auth

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultReplayWindow is the tolerance applied when no window is configured.
const DefaultReplayWindow = 60 * time.Second

// ParseTimestamp parses a presented x-timestamp value as seconds since the epoch.
// Fractional seconds are accepted. NaN and infinities are rejected.
func ParseTimestamp(raw string) (float64, error) {
	ts, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, ErrMalformedTimestamp
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, ErrMalformedTimestamp
	}
	return ts, nil
}

// CheckTimestamp validates a presented timestamp against now and the replay window.
// The window is inclusive: a timestamp exactly window seconds away is accepted.
// now is truncated to whole seconds before comparing.
func CheckTimestamp(raw string, now time.Time, window time.Duration) error {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	nowSec := float64(now.Unix())
	if math.Abs(nowSec-ts) > window.Seconds() {
		return ErrStaleTimestamp
	}
	return nil
}
