// Package recovery classifies errors that escape the execution loop and
// decides what happens next: backoff and retry, a registered alternative,
// or escalation to a human. It also owns the single backoff utility so
// retry tuning never diverges between call sites.
package recovery

import "time"

// Backoff computes capped exponential delays. The zero value is unusable;
// construct with NewBackoff.
type Backoff struct {
	// base is the delay for the first step.
	base time.Duration
	// cap bounds the delay growth.
	cap time.Duration
}

// NewBackoff creates a Backoff. Non-positive arguments fall back to
// 1s base and 30s cap.
func NewBackoff(base, cap time.Duration) Backoff {
	if base <= 0 {
		base = time.Second
	}
	if cap <= 0 {
		cap = 30 * time.Second
	}
	return Backoff{base: base, cap: cap}
}

// Delay returns the delay for the given step, doubling per step starting
// from the base and never exceeding the cap. Steps below 1 count as 1.
func (b Backoff) Delay(step int) time.Duration {
	if step < 1 {
		step = 1
	}
	d := b.base
	for i := 1; i < step; i++ {
		d *= 2
		if d >= b.cap {
			return b.cap
		}
	}
	if d > b.cap {
		return b.cap
	}
	return d
}
