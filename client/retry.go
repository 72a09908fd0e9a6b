package client

import (
	"math"
	"math/rand"
	"time"
)

// Retryer decides how long to wait before the next reconnect attempt.
type Retryer interface {
	// NextDelay returns the delay before attempt (0-based) and whether to
	// keep trying at all.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// Reset is called after a successful reconnect.
	Reset()
}

// ExponentialBackoffRetryer implements exponential backoff with jitter
type ExponentialBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxRetries is the maximum number of retry attempts (0 for infinite)
	MaxRetries int

	// JitterFactor spreads each delay by up to this fraction either way.
	JitterFactor float64
}

// NewExponentialBackoffRetryer retries forever: 1s, 2s, 4s, ... capped at
// 30s, each spread by 30%.
func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}
}

func (r *ExponentialBackoffRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt))
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.JitterFactor > 0 {
		//nolint:gosec // jitter only
		delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(r.InitialDelay)
		}
	}

	return time.Duration(delay), true
}

func (r *ExponentialBackoffRetryer) Reset() {}

// FixedDelayRetryer waits the same delay between attempts.
type FixedDelayRetryer struct {
	Delay      time.Duration
	MaxRetries int
}

func (r *FixedDelayRetryer) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}
	return r.Delay, true
}

func (r *FixedDelayRetryer) Reset() {}
