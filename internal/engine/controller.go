// Package engine is the step interpreter: it walks a workflow document,
// dispatches each step to its handler and tracks retries, loops and recursion.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/weave/pkg/channel"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persona"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/variables"
	"github.com/google/uuid"
)

// Controller drives one workflow document to completion on a single goroutine.
// It is not safe for concurrent use.
type Controller struct {
	doc      *document.Document
	vars     *variables.Context
	initial  map[string]string
	personas *persona.Registry
	provider ports.Provider
	io       ports.Channel
	poll     channel.Poll
	renderer Renderer
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	registry *Registry
	limits   Limits
	sleep    SleepFunc
	loader   LoaderFunc
	runID    string

	currentID   string
	previousID  string
	stepCount   int
	loopStartID string
	loopCount   int
	depth       int
}

// New creates a controller. Load must be called before executing steps.
func New(opts ...Option) *Controller {
	c := &Controller{
		io:       channel.Null{},
		poll:     channel.DefaultPoll,
		limits:   DefaultLimits(),
		registry: DefaultRegistry(),
		sleep:    sleepContext,
		loader:   document.ParseFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	return c
}

// Load binds the controller to doc: it reads the personas (unless a registry
// was shared), creates the variable context and moves to the entry step.
func (c *Controller) Load(doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrProtocolFormat)
	}
	if c.personas == nil {
		reg, err := persona.Load(doc)
		if err != nil {
			return err
		}
		c.personas = reg
	}

	c.doc = doc
	c.vars = variables.FromMap(c.initial)
	c.currentID = doc.EntryStepID()
	c.previousID = ""
	c.stepCount = 0
	c.resetLoop()

	c.logger.Debug("workflow loaded",
		"workflow", doc.Name(),
		"steps", len(doc.StepIDs()),
		"entry", c.currentID,
		"legacy", doc.Legacy(),
		"depth", c.depth)
	return nil
}

// LoadFile parses the document at path and loads it.
func (c *Controller) LoadFile(path string) error {
	doc, err := c.loader(path)
	if err != nil {
		return err
	}
	return c.Load(doc)
}

// ExecuteAllSteps runs steps until EXIT, an unrecovered error, or ctx is done.
// On cancellation it returns domain.ErrStopped; the controller state stays
// consistent and can be checkpointed.
func (c *Controller) ExecuteAllSteps(ctx context.Context) error {
	for !c.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w at step '%s': %w", domain.ErrStopped, c.currentID, err)
		}
		if err := c.ExecuteCurrentStep(ctx); err != nil {
			if ctx.Err() != nil && !errors.Is(err, domain.ErrStopped) {
				return fmt.Errorf("%w at step '%s': %w", domain.ErrStopped, c.currentID, err)
			}
			return err
		}
	}
	c.logger.Debug("workflow finished", "steps", c.stepCount, "depth", c.depth)
	return nil
}

// ExecuteCurrentStep executes exactly one step and advances to its successor.
func (c *Controller) ExecuteCurrentStep(ctx context.Context) error {
	if c.doc == nil {
		return fmt.Errorf("%w: no document loaded", domain.ErrProtocolFormat)
	}
	if c.Done() {
		return nil
	}
	if c.stepCount >= c.limits.MaxSteps {
		return &domain.StepError{
			StepID: c.currentID,
			Kind:   domain.ErrInputInvalid,
			Err:    &domain.LimitError{Limit: "step count", Max: c.limits.MaxSteps, Value: c.stepCount + 1},
		}
	}

	id := c.currentID
	node, ok := c.doc.Step(id)
	if !ok {
		return &domain.StepError{
			StepID: id,
			Kind:   domain.ErrProtocolFormat,
			Err:    fmt.Errorf("%w: step not found", domain.ErrProtocolFormat),
		}
	}
	typ, err := document.StepType(node)
	if err != nil {
		return &domain.StepError{StepID: id, Kind: domain.ErrProtocolFormat, Err: err}
	}
	h, ok := c.registry.lookup(typ)
	if !ok {
		return &domain.StepError{
			StepID:   id,
			StepType: typ,
			Kind:     domain.ErrInputInvalid,
			Err:      fmt.Errorf("%w: unknown step type '%s'", domain.ErrInputInvalid, typ),
		}
	}

	step := c.newStep(id, typ, node)
	start := time.Now()
	c.emitStepStart(ctx, step)

	next, err := c.dispatch(ctx, h, step)
	if err == nil {
		err = c.advance(ctx, step, next)
	}

	c.emitStepEnd(ctx, step, next, time.Since(start), err)
	if err != nil {
		return &domain.StepError{StepID: id, StepType: typ, Kind: domain.Classify(err), Err: err}
	}
	return nil
}

// dispatch runs the handler and resolves the next step id.
func (c *Controller) dispatch(ctx context.Context, h entry, step *Step) (string, error) {
	if h.shape == ShapeBranching {
		// The branch choice is never retried.
		return h.branching.Branch(ctx, step)
	}

	// A malformed retry object is a configuration error; on_error never absorbs it.
	cfg, err := retryConfig(step.Node)
	if err != nil {
		return "", err
	}
	err = c.withRetry(ctx, step, cfg, func() error {
		if h.shape == ShapeBasic {
			return h.basic.Execute(ctx, step)
		}
		return h.interactive.Interact(ctx, c, step)
	})
	if err != nil {
		return c.onError(ctx, step, err)
	}
	return step.NextStep()
}

func (c *Controller) newStep(id, typ string, node document.Node) *Step {
	return &Step{
		ID:       id,
		Type:     typ,
		Node:     node,
		Doc:      c.doc,
		Vars:     c.vars,
		IO:       c.io,
		Poll:     c.poll,
		Render:   c.renderer,
		Provider: c.provider,
		Personas: c.personas,
		Logger:   c.logger.With("step_id", id, "step_type", typ),
	}
}

func (c *Controller) emitStepStart(ctx context.Context, step *Step) {
	c.logger.Debug("step started", "step_id", step.ID, "step_type", step.Type, "depth", c.depth)
	if c.hooks.OnStepStart != nil {
		c.hooks.OnStepStart(ctx, &domain.StepEvent{
			EventBase: c.eventBase(domain.EventStepStart),
			StepID:    step.ID,
			StepType:  step.Type,
		})
	}
}

func (c *Controller) emitStepEnd(ctx context.Context, step *Step, next string, d time.Duration, err error) {
	if err != nil {
		c.logger.Debug("step failed", "step_id", step.ID, "step_type", step.Type, "err", err)
	} else {
		c.logger.Debug("step finished", "step_id", step.ID, "next_step", next, "duration", d)
	}
	if c.hooks.OnStepEnd != nil {
		c.hooks.OnStepEnd(ctx, &domain.StepEvent{
			EventBase: c.eventBase(domain.EventStepEnd),
			StepID:    step.ID,
			StepType:  step.Type,
			NextStep:  next,
			Duration:  d,
			Err:       err,
		})
	}
}

func (c *Controller) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: c.runID, Depth: c.depth}
}

// Done reports whether the workflow reached EXIT.
func (c *Controller) Done() bool {
	return c.currentID == domain.ExitStepID
}

// CurrentStepID returns the id of the step that runs next, or EXIT.
func (c *Controller) CurrentStepID() string { return c.currentID }

// PreviousStepID returns the id of the last executed step.
func (c *Controller) PreviousStepID() string { return c.previousID }

// StepCount returns how many steps have executed in this run.
func (c *Controller) StepCount() int { return c.stepCount }

// LoopStartStepID returns the head of the loop being tracked, if any.
func (c *Controller) LoopStartStepID() string { return c.loopStartID }

// LoopIterationCount returns the backward jumps taken to the current loop head.
func (c *Controller) LoopIterationCount() int { return c.loopCount }

// RecursionDepth returns how many sub-workflows enclose this controller.
func (c *Controller) RecursionDepth() int { return c.depth }

// RunID identifies the run for checkpoints and channel sessions.
func (c *Controller) RunID() string { return c.runID }

// Variables returns the live variable context.
func (c *Controller) Variables() *variables.Context { return c.vars }

// Personas returns the persona registry in use.
func (c *Controller) Personas() *persona.Registry { return c.personas }

// Document returns the loaded document.
func (c *Controller) Document() *document.Document { return c.doc }

// Checkpoint snapshots the controller between steps.
func (c *Controller) Checkpoint() *domain.Checkpoint {
	cp := &domain.Checkpoint{
		RunID:          c.runID,
		CurrentStepID:  c.currentID,
		PreviousStepID: c.previousID,
		StepCount:      c.stepCount,
		LoopStartID:    c.loopStartID,
		LoopCount:      c.loopCount,
		SavedAt:        time.Now(),
	}
	if c.doc != nil {
		cp.Workflow = c.doc.Path()
		if cp.Workflow == "" {
			cp.Workflow = c.doc.Name()
		}
	}
	if c.vars != nil {
		cp.Variables = c.vars.Snapshot()
	}
	return cp
}

// Restore resumes from a checkpoint taken on the same document.
func (c *Controller) Restore(cp *domain.Checkpoint) error {
	if c.doc == nil {
		return fmt.Errorf("%w: no document loaded", domain.ErrProtocolFormat)
	}
	if cp.CurrentStepID != domain.ExitStepID {
		if _, ok := c.doc.Step(cp.CurrentStepID); !ok {
			return fmt.Errorf("%w: checkpoint step '%s' is not in the document", domain.ErrInputInvalid, cp.CurrentStepID)
		}
	}
	c.runID = cp.RunID
	c.currentID = cp.CurrentStepID
	c.previousID = cp.PreviousStepID
	c.stepCount = cp.StepCount
	c.loopStartID = cp.LoopStartID
	c.loopCount = cp.LoopCount
	c.vars = variables.FromMap(cp.Variables)
	c.logger.Info("run restored", "run_id", cp.RunID, "step_id", cp.CurrentStepID, "step_count", cp.StepCount)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
