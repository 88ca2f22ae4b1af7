package ports

import "context"

// Provider is the AI query capability consumed by CI steps.
// Query blocks until the full response is available, the provider's own
// timeout elapses, or ctx is done.
type Provider interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Query calls f.
func (f ProviderFunc) Query(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
