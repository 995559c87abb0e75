package orchestrator

import "time"

// backoff returns the wait before the next attempt. attempt is the number
// of attempts already made, so the first retry (attempt=1) waits base and
// each further retry multiplies the wait.
func backoff(base time.Duration, multiplier float64, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	wait := float64(base)
	for i := 1; i < attempt; i++ {
		wait *= multiplier
	}
	// Cap at a minute; a stalled model endpoint should fail the task, not
	// park it for hours.
	if max := float64(time.Minute); wait > max {
		wait = max
	}
	return time.Duration(wait)
}
