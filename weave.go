package weave

import (
	"context"

	"github.com/aretw0/weave/internal/engine"
	"github.com/aretw0/weave/internal/validator"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/runner"
)

// Version is the release of the weave module. It is overridden at link time.
var Version = "dev"

// Controller executes one workflow document step by step.
type Controller = engine.Controller

// Option configures a Controller.
type Option = engine.Option

// Limits bounds a run.
type Limits = engine.Limits

// Registry maps step types to handlers.
type Registry = engine.Registry

// Report holds the findings of Validate.
type Report = validator.Report

// Controller options.
var (
	WithLogger         = engine.WithLogger
	WithProvider       = engine.WithProvider
	WithChannel        = engine.WithChannel
	WithPoll           = engine.WithPoll
	WithPersonas       = engine.WithPersonas
	WithVariables      = engine.WithVariables
	WithLifecycleHooks = engine.WithLifecycleHooks
	WithRegistry       = engine.WithRegistry
	WithLimits         = engine.WithLimits
	WithRenderer       = engine.WithRenderer
	WithRunID          = engine.WithRunID
)

// DefaultRegistry returns a registry with every built-in step type.
func DefaultRegistry() *Registry {
	return engine.DefaultRegistry()
}

// New creates a controller with no document loaded.
func New(opts ...Option) *Controller {
	return engine.New(opts...)
}

// Open creates a controller and loads the workflow at path.
func Open(path string, opts ...Option) (*Controller, error) {
	c := engine.New(opts...)
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse creates a controller from an in-memory workflow document.
func Parse(raw []byte, opts ...Option) (*Controller, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, err
	}
	c := engine.New(opts...)
	if err := c.Load(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// Run drives c to EXIT with a checkpointing runner. Signal handling is off;
// cancel ctx to stop.
func Run(ctx context.Context, c *Controller, opts ...runner.Option) error {
	opts = append([]runner.Option{runner.WithSignals(false)}, opts...)
	return runner.NewRunner(opts...).Run(ctx, c)
}

// Validate statically checks the workflow at path against the built-in step types.
func Validate(path string) (*Report, error) {
	doc, err := document.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return validator.Check(doc, engine.DefaultRegistry()), nil
}
