package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// advance moves to next, tracking backward numeric moves as loop iterations.
// Only purely numeric ids take part in loop detection.
func (c *Controller) advance(ctx context.Context, step *Step, next string) error {
	if next == "" {
		return fmt.Errorf("%w: empty next step id", domain.ErrProtocolFormat)
	}

	if isNumericID(c.currentID) && isNumericID(next) && compareNumericIDs(next, c.currentID) <= 0 {
		bound, err := c.iterationBound(step.Node, next)
		if err != nil {
			return err
		}

		count := 1
		if c.loopStartID == next {
			count = c.loopCount + 1
		}
		if count > bound {
			c.loopStartID = next
			c.loopCount = bound
			return &domain.LimitError{Limit: "loop iteration", Max: bound, Value: count}
		}
		c.loopStartID = next
		c.loopCount = count

		step.Logger.Debug("loop iteration", "head", next, "iteration", count, "max", bound)
		if c.hooks.OnLoop != nil {
			c.hooks.OnLoop(ctx, &domain.LoopEvent{
				EventBase:  c.eventBase(domain.EventLoop),
				HeadStepID: next,
				Iteration:  count,
				Max:        bound,
			})
		}
	} else {
		c.resetLoop()
	}

	c.previousID = c.currentID
	c.currentID = next
	c.stepCount++
	return nil
}

// iterationBound returns the loop bound: the jumping step's max_iterations,
// then the loop head's, then the configured default.
func (c *Controller) iterationBound(current document.Node, head string) (int, error) {
	if n, ok, err := maxIterations(current); err != nil || ok {
		return n, err
	}
	if headNode, found := c.doc.Step(head); found {
		if n, ok, err := maxIterations(headNode); err != nil || ok {
			return n, err
		}
	}
	return c.limits.MaxIterations, nil
}

func maxIterations(node document.Node) (int, bool, error) {
	n, ok, err := document.OptionalInt(node, fieldMaxIter)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %v", domain.ErrInputInvalid, err)
	}
	if ok && n <= 0 {
		return 0, true, fmt.Errorf("%w: '%s' must be positive, got %d", domain.ErrInputInvalid, fieldMaxIter, n)
	}
	return n, ok, nil
}

func (c *Controller) resetLoop() {
	c.loopStartID = ""
	c.loopCount = 0
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// compareNumericIDs compares two digit strings of any length.
func compareNumericIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
