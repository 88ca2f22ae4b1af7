package runner

import (
	"log/slog"

	"github.com/aretw0/weave/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the CheckpointStore for persistence.
func WithStore(store ports.CheckpointStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithSignals enables or disables SIGINT/SIGTERM handling (enabled by default).
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.Signals = enabled
	}
}

// WithDeleteOnFinish removes the checkpoint once the workflow reaches EXIT.
func WithDeleteOnFinish(enabled bool) Option {
	return func(r *Runner) {
		r.DeleteOnFinish = enabled
	}
}
