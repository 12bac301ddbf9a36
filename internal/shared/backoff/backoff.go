// Package backoff provides the reconnect delay policy shared by the feed
// connector and the stream client.
package backoff

import "time"

// Delay returns the wait before reconnect attempt number attempt (0-based):
// base doubled per attempt, capped at max. A non-positive base falls back to
// one second so a zero-value config never produces a busy loop.
func Delay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}
