package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/weave/pkg/domain"
)

// BasicHandler runs a step whose successor is its own next_step.
type BasicHandler interface {
	Execute(ctx context.Context, step *Step) error
}

// BranchingHandler runs a step and chooses the next step id itself.
type BranchingHandler interface {
	Branch(ctx context.Context, step *Step) (string, error)
}

// InteractiveHandler runs a step that needs the controller (provider, personas,
// child workflows). Its successor is its own next_step.
type InteractiveHandler interface {
	Interact(ctx context.Context, c *Controller, step *Step) error
}

// BasicFunc adapts a function to BasicHandler.
type BasicFunc func(ctx context.Context, step *Step) error

func (f BasicFunc) Execute(ctx context.Context, step *Step) error { return f(ctx, step) }

// BranchingFunc adapts a function to BranchingHandler.
type BranchingFunc func(ctx context.Context, step *Step) (string, error)

func (f BranchingFunc) Branch(ctx context.Context, step *Step) (string, error) { return f(ctx, step) }

// InteractiveFunc adapts a function to InteractiveHandler.
type InteractiveFunc func(ctx context.Context, c *Controller, step *Step) error

func (f InteractiveFunc) Interact(ctx context.Context, c *Controller, step *Step) error {
	return f(ctx, c, step)
}

// Shape is the capability contract a step type implements.
type Shape int

const (
	ShapeBasic Shape = iota
	ShapeBranching
	ShapeInteractive
)

func (s Shape) String() string {
	switch s {
	case ShapeBasic:
		return "basic"
	case ShapeBranching:
		return "branching"
	case ShapeInteractive:
		return "interactive"
	}
	return "unknown"
}

type entry struct {
	shape       Shape
	basic       BasicHandler
	branching   BranchingHandler
	interactive InteractiveHandler
}

// Registry maps step type names to handlers.
type Registry struct {
	handlers map[string]entry
	aliases  map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]entry),
		aliases:  make(map[string]string),
	}
}

// DefaultRegistry returns the closed table of built-in step types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterBasic(domain.StepDisplay, BasicFunc(display))
	r.RegisterBasic(domain.StepSaveFile, BasicFunc(saveFile))
	r.RegisterBasic(domain.StepUserAsk, BasicFunc(userAsk))
	r.RegisterBranching(domain.StepDecide, BranchingFunc(decide))
	r.RegisterBranching(domain.StepUserChoose, BranchingFunc(userChoose))
	r.RegisterInteractive(domain.StepCIAsk, InteractiveFunc(ciAsk))
	r.RegisterInteractive(domain.StepCIAnalyze, InteractiveFunc(ciAnalyze))
	r.RegisterInteractive(domain.StepCIAskSeries, InteractiveFunc(ciAskSeries))
	r.RegisterInteractive(domain.StepCIPresent, InteractiveFunc(ciPresent))
	r.RegisterInteractive(domain.StepUserCIChat, InteractiveFunc(userCIChat))
	r.RegisterInteractive(domain.StepWorkflowCall, InteractiveFunc(workflowCall))
	r.RegisterInteractive(domain.StepParallel, InteractiveFunc(parallel))
	_ = r.Alias(domain.StepUserInputAlias, domain.StepUserAsk)
	return r
}

func (r *Registry) RegisterBasic(name string, h BasicHandler) {
	r.handlers[name] = entry{shape: ShapeBasic, basic: h}
}

func (r *Registry) RegisterBranching(name string, h BranchingHandler) {
	r.handlers[name] = entry{shape: ShapeBranching, branching: h}
}

func (r *Registry) RegisterInteractive(name string, h InteractiveHandler) {
	r.handlers[name] = entry{shape: ShapeInteractive, interactive: h}
}

// Alias makes name resolve to the handler registered as target.
func (r *Registry) Alias(name, target string) error {
	if _, ok := r.handlers[target]; !ok {
		return fmt.Errorf("%w: alias '%s' targets unknown step type '%s'", domain.ErrInputInvalid, name, target)
	}
	r.aliases[name] = target
	return nil
}

func (r *Registry) lookup(name string) (entry, bool) {
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	e, ok := r.handlers[name]
	return e, ok
}

// Shape reports the capability contract of a step type.
func (r *Registry) Shape(name string) (Shape, bool) {
	e, ok := r.lookup(name)
	return e.shape, ok
}

// Has reports whether name resolves to a handler.
func (r *Registry) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Types lists every registered type and alias, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.handlers)+len(r.aliases))
	for name := range r.handlers {
		out = append(out, name)
	}
	for name := range r.aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
