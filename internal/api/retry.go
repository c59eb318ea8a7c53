package api

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls how failed requests are retried. The zero value is
// not usable; start from DefaultRetryConfig.
type RetryConfig struct {
	// MaxRetries bounds the number of retry attempts after the first try.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64
	// Jitter (0.0 to 1.0) randomizes delays to avoid thundering herds.
	Jitter float64
	// RetryableOn reports whether a status code warrants a retry.
	RetryableOn func(statusCode int) bool
}

// DefaultRetryConfig retries up to three times with exponential backoff on
// timeouts, rate limits and server errors.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   20 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
		RetryableOn: func(statusCode int) bool {
			switch statusCode {
			case 408, 429, 500, 502, 503, 504:
				return true
			}
			return false
		},
	}
}

// ShouldRetry reports whether the request should be retried after the given
// zero-based attempt finished with statusCode.
func (r *RetryConfig) ShouldRetry(attempt, statusCode int) bool {
	return attempt < r.MaxRetries && r.RetryableOn(statusCode)
}

// Delay returns the backoff before retry number attempt, jittered.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	delay := math.Min(
		float64(r.BaseDelay)*math.Pow(r.Multiplier, float64(attempt)),
		float64(r.MaxDelay),
	)
	if r.Jitter > 0 {
		spread := delay * r.Jitter
		delay += spread * (2*rand.Float64() - 1)
	}
	return time.Duration(delay)
}

// Wait sleeps for the attempt's backoff, or returns early with the context's
// error if it is cancelled first.
func (r *RetryConfig) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
