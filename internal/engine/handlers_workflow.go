package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// workflowCall runs another workflow document in a child controller.
// The recursion bound is checked before the child is created.
func workflowCall(ctx context.Context, c *Controller, s *Step) error {
	path, err := s.Text("workflow")
	if err != nil {
		return err
	}
	key, err := s.OptionalString(fieldSaveTo, "")
	if err != nil {
		return err
	}

	if c.depth >= c.limits.MaxRecursionDepth {
		return &domain.LimitError{Limit: "recursion depth", Max: c.limits.MaxRecursionDepth, Value: c.depth + 1}
	}

	inputs, err := mapField(s, "input")
	if err != nil {
		return err
	}
	seed := make(map[string]string, len(inputs))
	for _, kv := range inputs {
		seed[kv.key] = s.Vars.Substitute(kv.value)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Doc.Dir(), path)
	}
	doc, err := c.loader(path)
	if err != nil {
		return err
	}

	child := c.spawn(seed)
	if err := child.Load(doc); err != nil {
		return err
	}
	s.Logger.Info("calling workflow", "workflow", path, "depth", child.depth)
	if err := child.ExecuteAllSteps(ctx); err != nil {
		return fmt.Errorf("workflow %s: %w", filepath.Base(path), err)
	}

	outputs, err := mapField(s, "output")
	if err != nil {
		return err
	}
	for _, kv := range outputs {
		if v, ok := child.vars.Get(kv.value); ok {
			if err := s.Save(kv.key, v); err != nil {
				return err
			}
		}
	}
	if key != "" {
		return s.Save(key, domain.CompletionMarker)
	}
	return nil
}

// spawn creates a child controller one level deeper that shares the
// provider, personas, channel, hooks and limits.
func (c *Controller) spawn(vars map[string]string) *Controller {
	return New(
		WithLogger(c.logger),
		WithProvider(c.provider),
		WithChannel(c.io),
		WithPoll(c.poll),
		WithPersonas(c.personas),
		WithVariables(vars),
		WithLifecycleHooks(c.hooks),
		WithRegistry(c.registry),
		WithLimits(c.limits),
		WithRenderer(c.renderer),
		WithSleep(c.sleep),
		WithLoader(c.loader),
		WithRunID(c.runID),
		withDepth(c.depth+1),
	)
}

type keyValue struct {
	key   string
	value string
}

// mapField reads an optional object of string values.
func mapField(s *Step, field string) ([]keyValue, error) {
	node, ok := s.Node.Field(field)
	if !ok {
		return nil, nil
	}
	members, err := node.Members()
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", field, err)
	}
	out := make([]keyValue, 0, len(members))
	for _, m := range members {
		var v string
		if m.Value.IsString() {
			v, _ = m.Value.String()
		} else {
			v = m.Value.Raw()
		}
		out = append(out, keyValue{key: m.Key, value: v})
	}
	return out, nil
}

// parallel validates parallel_steps. The listed steps are not executed:
// execution continues at the step's own next_step.
func parallel(_ context.Context, _ *Controller, s *Step) error {
	ids, err := parallelSteps(s.Node, s.Doc)
	if err != nil {
		return err
	}
	key, err := s.OptionalString(fieldSaveTo, "")
	if err != nil {
		return err
	}
	s.Logger.Warn("parallel branches validated but not executed", "parallel_steps", ids)
	if key != "" {
		return s.Save(key, strings.Join(ids, ","))
	}
	return nil
}

func parallelSteps(node document.Node, doc *document.Document) ([]string, error) {
	list, ok := node.Field("parallel_steps")
	if !ok {
		return nil, &domain.MissingFieldError{Field: "parallel_steps"}
	}
	items, err := list.Array()
	if err != nil {
		return nil, fmt.Errorf("field 'parallel_steps': %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: field 'parallel_steps' is empty", domain.ErrProtocolFormat)
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id, err := item.ID()
		if err != nil {
			return nil, fmt.Errorf("parallel_steps[%d]: %w", i, err)
		}
		if _, ok := doc.Step(id); !ok {
			return nil, fmt.Errorf("%w: parallel_steps[%d] references unknown step '%s'", domain.ErrProtocolFormat, i, id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
