package domain

import "time"

// Backoff selects how the delay between retry attempts grows.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryConfig is parsed from the optional 'retry' object of a step.
type RetryConfig struct {
	MaxRetries   int     `mapstructure:"max_retries"`
	RetryDelayMS int     `mapstructure:"retry_delay_ms"`
	Backoff      Backoff `mapstructure:"backoff"`
}

// Attempts returns the total number of invocations allowed.
func (c RetryConfig) Attempts() int {
	if c.MaxRetries <= 0 {
		return 1
	}
	return c.MaxRetries + 1
}

// Delay returns the pause before the retry that follows the given failed attempt
// (0-based), capped at max.
func (c RetryConfig) Delay(attempt int, max time.Duration) time.Duration {
	base := time.Duration(c.RetryDelayMS) * time.Millisecond
	if c.RetryDelayMS <= 0 {
		base = DefaultRetryDelay
	}
	if max <= 0 {
		max = MaxRetryDelay
	}
	if base > max {
		return max
	}

	var d time.Duration
	switch c.Backoff {
	case BackoffLinear:
		d = base * time.Duration(attempt+1)
	case BackoffExponential:
		d = base
		for i := 0; i < attempt && d < max; i++ {
			d *= 2
		}
	default:
		d = base
	}
	if d > max || d <= 0 {
		return max
	}
	return d
}
