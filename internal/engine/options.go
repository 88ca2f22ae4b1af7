package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/weave/pkg/channel"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persona"
	"github.com/aretw0/weave/pkg/ports"
)

// Limits bounds a run.
type Limits struct {
	// MaxSteps is the safety ceiling on executed steps.
	MaxSteps int
	// MaxIterations is the loop bound used when no step declares max_iterations.
	MaxIterations int
	// MaxRecursionDepth bounds nested workflow_call.
	MaxRecursionDepth int
	// MaxRetryDelay caps the pause between retry attempts.
	MaxRetryDelay time.Duration
}

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:          domain.DefaultMaxSteps,
		MaxIterations:     domain.DefaultMaxIterations,
		MaxRecursionDepth: domain.DefaultMaxRecursionDepth,
		MaxRetryDelay:     domain.MaxRetryDelay,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxIterations <= 0 {
		l.MaxIterations = d.MaxIterations
	}
	if l.MaxRecursionDepth <= 0 {
		l.MaxRecursionDepth = d.MaxRecursionDepth
	}
	if l.MaxRetryDelay <= 0 {
		l.MaxRetryDelay = d.MaxRetryDelay
	}
	return l
}

// SleepFunc pauses between retry attempts.
type SleepFunc func(ctx context.Context, d time.Duration) error

// LoaderFunc loads the document named by a workflow_call step.
type LoaderFunc func(path string) (*document.Document, error)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithProvider sets the AI provider used by CI steps.
func WithProvider(p ports.Provider) Option {
	return func(c *Controller) {
		c.provider = p
	}
}

// WithChannel sets the interactive I/O channel.
func WithChannel(ch ports.Channel) Option {
	return func(c *Controller) {
		c.io = ch
	}
}

// WithPoll sets how long detached channels are polled.
func WithPoll(p channel.Poll) Option {
	return func(c *Controller) {
		c.poll = p
	}
}

// WithPersonas shares an existing persona registry instead of reading the document's.
func WithPersonas(r *persona.Registry) Option {
	return func(c *Controller) {
		c.personas = r
	}
}

// WithVariables seeds the variable context created by Load.
func WithVariables(vars map[string]string) Option {
	return func(c *Controller) {
		c.initial = vars
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithRegistry replaces the step dispatch table.
func WithRegistry(r *Registry) Option {
	return func(c *Controller) {
		c.registry = r
	}
}

// WithLimits sets run bounds. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(c *Controller) {
		c.limits = l.withDefaults()
	}
}

// WithRenderer sets the display renderer.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		c.renderer = r
	}
}

// WithSleep replaces the retry pause (tests use a no-op).
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithLoader replaces how workflow_call reads child documents.
func WithLoader(fn LoaderFunc) Option {
	return func(c *Controller) {
		c.loader = fn
	}
}

// WithRunID sets the run id reported in events and checkpoints.
func WithRunID(id string) Option {
	return func(c *Controller) {
		c.runID = id
	}
}

func withDepth(depth int) Option {
	return func(c *Controller) {
		c.depth = depth
	}
}
