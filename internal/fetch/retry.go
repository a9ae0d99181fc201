package fetch

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig defines retry behavior and per-request timeouts.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	UploadTimeout     time.Duration
	APITimeout        time.Duration
}

// DefaultRetryConfig provides the standard retry policy.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	BaseDelay:         1 * time.Second,
	MaxDelay:          8 * time.Second,
	BackoffMultiplier: 2,
	UploadTimeout:     5 * time.Minute,
	APITimeout:        30 * time.Second,
}

// CalculateRetryDelay returns the wait before retry number attempt+1:
// base*multiplier^attempt plus up to 10% jitter, capped at MaxDelay.
func (c RetryConfig) CalculateRetryDelay(attempt int) time.Duration {
	return c.retryDelay(attempt, randFloat)
}

func (c RetryConfig) retryDelay(attempt int, jitter func() float64) time.Duration {
	delay := float64(c.BaseDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))
	delay += jitter() * 0.1 * delay
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

var randFloat = rand.Float64

// timeoutFor returns the per-attempt timeout class of a request.
func (c RetryConfig) timeoutFor(upload bool) time.Duration {
	if upload {
		return c.UploadTimeout
	}
	return c.APITimeout
}
