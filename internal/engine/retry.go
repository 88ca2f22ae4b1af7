package engine

import (
	"context"
	"fmt"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// retryConfig decodes the step's optional retry object.
func retryConfig(node document.Node) (domain.RetryConfig, error) {
	var cfg domain.RetryConfig
	raw, ok := node.Field(fieldRetry)
	if !ok {
		return cfg, nil
	}
	if !raw.IsObject() {
		return cfg, fmt.Errorf("%w: '%s' must be an object", domain.ErrInputInvalid, fieldRetry)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw.Value()); err != nil {
		return cfg, fmt.Errorf("%w: '%s': %v", domain.ErrInputInvalid, fieldRetry, err)
	}

	if cfg.MaxRetries < 0 || cfg.RetryDelayMS < 0 {
		return cfg, fmt.Errorf("%w: '%s' values cannot be negative", domain.ErrInputInvalid, fieldRetry)
	}
	switch cfg.Backoff {
	case "", domain.BackoffFixed, domain.BackoffLinear, domain.BackoffExponential:
	default:
		return cfg, fmt.Errorf("%w: unknown backoff '%s'", domain.ErrInputInvalid, cfg.Backoff)
	}
	return cfg, nil
}

// withRetry calls fn up to cfg.Attempts() times. Fatal errors and
// cancellation end the loop at once.
func (c *Controller) withRetry(ctx context.Context, step *Step, cfg domain.RetryConfig, fn func() error) error {
	attempts := cfg.Attempts()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if domain.IsFatal(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		delay := cfg.Delay(attempt, c.limits.MaxRetryDelay)
		step.Logger.Warn("step failed, retrying",
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay,
			"err", lastErr)
		if c.hooks.OnRetry != nil {
			c.hooks.OnRetry(ctx, &domain.RetryEvent{
				EventBase: c.eventBase(domain.EventRetry),
				StepID:    step.ID,
				Attempt:   attempt + 1,
				Delay:     delay,
				Err:       lastErr,
			})
		}
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return &domain.RetryExhaustedError{Attempts: attempts, LastError: lastErr}
}
