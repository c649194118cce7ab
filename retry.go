package serp

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how the client retries failed requests.
// Delays grow exponentially: BaseDelay * BackoffMultiplier^attempt,
// capped at MaxDelay.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
	// Jitter randomizes delays between half and the full computed value.
	// Off by default, so backoff stays deterministic.
	Jitter bool
}

// DefaultRetryPolicy returns the policy the client uses unless configured
// otherwise: 3 retries, 100ms base, 10s cap, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// BackoffDuration returns the delay before retry attempt (0-based).
// The computation works in whole milliseconds, fractions are truncated.
func (p RetryPolicy) BackoffDuration(attempt int) time.Duration {
	ms := float64(p.BaseDelay.Milliseconds()) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if maxMs := float64(p.MaxDelay.Milliseconds()); ms > maxMs {
		ms = maxMs
	}

	d := time.Duration(ms) * time.Millisecond
	if p.Jitter && d > 0 {
		half := d / 2
		d = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return d
}
