package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// TypeChecker reports whether a step type has a handler.
type TypeChecker interface {
	Has(stepType string) bool
}

// Report holds the findings of a static check.
// Errors make the workflow fail at run time; warnings do not.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err returns nil when the report has no errors.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrProtocolFormat, len(r.Errors), strings.Join(r.Errors, "\n- "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateWorkflow checks every step type and jump target of doc and returns
// the first failure class as an error.
func ValidateWorkflow(doc *document.Document, types TypeChecker) error {
	return Check(doc, types).Err()
}

// Check crawls doc from its entry step. It reports unknown or missing step
// types, jumps to steps that do not exist and, as warnings, steps that can
// never be reached and child workflows missing on disk.
func Check(doc *document.Document, types TypeChecker) *Report {
	r := &Report{}
	for _, step := range doc.Steps() {
		id, _ := document.StepID(step)
		typ, err := document.StepType(step)
		if err != nil {
			r.errorf("step '%s': %v", id, err)
		} else if !types.Has(typ) {
			r.errorf("step '%s': unknown step type '%s'", id, typ)
		}
		for _, t := range targets(r, id, typ, step) {
			if t.id == domain.ExitStepID {
				continue
			}
			if _, ok := doc.Step(t.id); !ok {
				r.errorf("step '%s': %s references missing step '%s'", id, t.via, t.id)
			}
		}
		if typ == domain.StepWorkflowCall {
			checkChild(r, doc, id, step)
		}
	}

	entry := doc.EntryStepID()
	visited := make(map[string]bool)
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] || current == domain.ExitStepID {
			continue
		}
		visited[current] = true

		step, ok := doc.Step(current)
		if !ok {
			continue
		}
		typ, _ := document.StepType(step)
		for _, t := range targets(nil, current, typ, step) {
			if !visited[t.id] {
				queue = append(queue, t.id)
			}
		}
	}
	for _, id := range doc.StepIDs() {
		if !visited[id] {
			r.warnf("step '%s' is unreachable from '%s'", id, entry)
		}
	}
	return r
}

type target struct {
	id  string
	via string
}

// Edge is one possible move between steps.
type Edge struct {
	From string
	To   string
	// Via names the field the jump came from: next_step, if_true, options[1], on_error...
	Via string
}

// Edges lists every well-formed jump of doc in declaration order.
func Edges(doc *document.Document) []Edge {
	var out []Edge
	for _, step := range doc.Steps() {
		id, _ := document.StepID(step)
		typ, _ := document.StepType(step)
		for _, t := range targets(nil, id, typ, step) {
			out = append(out, Edge{From: id, To: t.id, Via: t.via})
		}
	}
	return out
}

// targets lists every step id a step can move to. Malformed fields are
// recorded on r when it is not nil.
func targets(r *Report, id, typ string, step document.Node) []target {
	var out []target
	add := func(node document.Node, field, via string) {
		if _, ok := node.Field(field); !ok {
			return
		}
		t, err := document.RequireID(node, field)
		if err != nil {
			if r != nil {
				r.errorf("step '%s': %s: %v", id, via, err)
			}
			return
		}
		out = append(out, target{id: t, via: via})
	}

	add(step, document.FieldNextStep, "next_step")
	switch typ {
	case domain.StepDecide:
		add(step, "if_true", "if_true")
		add(step, "if_false", "if_false")
	case domain.StepUserChoose:
		if opts, ok := step.Field("options"); ok {
			items, _ := opts.Array()
			for i, item := range items {
				add(item, document.FieldNextStep, fmt.Sprintf("options[%d]", i))
			}
		}
	case domain.StepParallel:
		if list, ok := step.Field("parallel_steps"); ok {
			items, _ := list.Array()
			for i, item := range items {
				t, err := item.ID()
				if err != nil {
					if r != nil {
						r.errorf("step '%s': parallel_steps[%d]: %v", id, i, err)
					}
					continue
				}
				out = append(out, target{id: t, via: fmt.Sprintf("parallel_steps[%d]", i)})
			}
		}
	}

	if onErr, ok := step.Field("on_error"); ok {
		switch {
		case onErr.IsString():
			add(step, "on_error", "on_error")
		case onErr.IsObject():
			add(onErr, document.FieldNextStep, "on_error")
			add(onErr, "target", "on_error")
		}
	}
	return out
}

func checkChild(r *Report, doc *document.Document, id string, step document.Node) {
	path, err := document.RequireString(step, "workflow")
	if err != nil {
		r.errorf("step '%s': %v", id, err)
		return
	}
	if strings.Contains(path, "{{") {
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(doc.Dir(), path)
	}
	if _, err := os.Stat(path); err != nil {
		r.warnf("step '%s': child workflow %s is not readable: %v", id, path, err)
	}
}
