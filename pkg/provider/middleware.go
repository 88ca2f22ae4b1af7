package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// ErrResponseTooLarge is returned when a reply exceeds the configured size.
// The reply is discarded rather than cut short.
var ErrResponseTooLarge = fmt.Errorf("%w: provider response too large", domain.ErrResourceUnavailable)

// Middleware decorates a provider.
type Middleware func(ports.Provider) ports.Provider

// Chain applies middleware so the first one is outermost.
func Chain(p ports.Provider, mws ...Middleware) ports.Provider {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// WithTimeout bounds each query. An expired deadline is reported as
// domain.ErrResourceUnavailable; cancellation by the caller is passed through.
func WithTimeout(d time.Duration) Middleware {
	return func(next ports.Provider) ports.Provider {
		if d <= 0 {
			return next
		}
		return ports.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
			qctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			out, err := next.Query(qctx, prompt)
			if err != nil && ctx.Err() == nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: provider timed out after %s", domain.ErrResourceUnavailable, d)
			}
			return out, err
		})
	}
}

// WithMaxResponseBytes rejects replies longer than n bytes.
func WithMaxResponseBytes(n int) Middleware {
	return func(next ports.Provider) ports.Provider {
		if n <= 0 {
			return next
		}
		return ports.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
			out, err := next.Query(ctx, prompt)
			if err != nil {
				return "", err
			}
			if len(out) > n {
				return "", fmt.Errorf("%w: %d bytes > %d", ErrResponseTooLarge, len(out), n)
			}
			return out, nil
		})
	}
}

// WithRateLimit spaces queries with a token bucket of perMinute requests and
// the given burst. Waiting honors ctx.
func WithRateLimit(perMinute float64, burst int) Middleware {
	return func(next ports.Provider) ports.Provider {
		if perMinute <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		lim := rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
		return ports.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
			if err := lim.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				return "", fmt.Errorf("%w: rate limit: %w", domain.ErrResourceUnavailable, err)
			}
			return next.Query(ctx, prompt)
		})
	}
}
