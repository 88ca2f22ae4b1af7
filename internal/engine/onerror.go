package engine

import (
	"context"
	"fmt"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// on_error actions.
const (
	actionSkip = "skip"
	actionGoto = "goto"
	actionFail = "fail"
)

// onError consults the step's on_error directive after a handler failure.
// A string directive is an unconditional jump. skip continues at the step's
// next_step, goto at the directive's target; the failure message is kept in
// the last_error variable. fail and unknown actions re-raise err.
func (c *Controller) onError(ctx context.Context, step *Step, err error) (string, error) {
	directive, ok := step.Node.Field(fieldOnError)
	if !ok || ctx.Err() != nil {
		return "", err
	}

	var next string
	switch {
	case directive.IsString():
		target, idErr := directive.ID()
		if idErr != nil {
			return "", err
		}
		next = target

	case directive.IsObject():
		action, _ := document.OptionalString(directive, "action", actionFail)
		switch action {
		case actionSkip:
			target, nextErr := step.NextStep()
			if nextErr != nil {
				return "", fmt.Errorf("on_error skip: %w", nextErr)
			}
			next = target
		case actionGoto:
			target, gotoErr := gotoTarget(directive)
			if gotoErr != nil {
				return "", fmt.Errorf("on_error goto: %w", gotoErr)
			}
			next = target
		default:
			return "", err
		}

	default:
		return "", err
	}

	step.Logger.Warn("step failed, continuing via on_error", "next_step", next, "err", err)
	if setErr := c.vars.Set(domain.KeyLastError, err.Error()); setErr != nil {
		return "", setErr
	}
	return next, nil
}

func gotoTarget(directive document.Node) (string, error) {
	if _, ok := directive.Field(document.FieldNextStep); ok {
		return document.RequireID(directive, document.FieldNextStep)
	}
	return document.RequireID(directive, "target")
}
