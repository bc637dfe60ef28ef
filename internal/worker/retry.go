package worker

import (
	"math"
	"time"
)

// RetryPolicy defines backoff parameters for email delivery.
// MaxRetries is the total number of attempts per job; BackoffFactor 1 gives a fixed delay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay after a given failed attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Exhausted reports whether no attempts remain after the given one.
func (r RetryPolicy) Exhausted(attempt int) bool {
	max := r.MaxRetries
	if max <= 0 {
		max = 1
	}
	return attempt >= max
}
