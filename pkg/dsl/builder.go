package dsl

import (
	"fmt"

	"github.com/Jeffail/gabs/v2"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persona"
)

// Builder assembles a workflow document step by step.
// Steps keep the order in which they were first added; the first one is the entry step.
type Builder struct {
	name           string
	description    string
	personas       []namedPersona
	defaultPersona string
	steps          []*StepBuilder
	index          map[string]*StepBuilder
}

type namedPersona struct {
	key string
	p   persona.Persona
}

// New creates a builder for a workflow called name.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		index: make(map[string]*StepBuilder),
	}
}

// Describe sets the workflow description.
func (b *Builder) Describe(text string) *Builder {
	b.description = text
	return b
}

// Persona declares a persona under key.
func (b *Builder) Persona(key string, p persona.Persona) *Builder {
	b.personas = append(b.personas, namedPersona{key: key, p: p})
	return b
}

// DefaultPersona names the persona used by steps that select none.
func (b *Builder) DefaultPersona(key string) *Builder {
	b.defaultPersona = key
	return b
}

// Step returns the builder for step id, creating it on first use.
func (b *Builder) Step(id string) *StepBuilder {
	if sb, ok := b.index[id]; ok {
		return sb
	}
	sb := &StepBuilder{id: id, fields: make(map[string]any)}
	b.steps = append(b.steps, sb)
	b.index[id] = sb
	return sb
}

// JSON renders the workflow document.
func (b *Builder) JSON() ([]byte, error) {
	if len(b.steps) == 0 {
		return nil, fmt.Errorf("%w: workflow %q has no steps", domain.ErrInputInvalid, b.name)
	}

	root := gabs.New()
	if _, err := root.Set(b.name, document.FieldWorkflowName); err != nil {
		return nil, err
	}
	if b.description != "" {
		if _, err := root.Set(b.description, document.FieldDescription); err != nil {
			return nil, err
		}
	}
	for _, np := range b.personas {
		if _, err := root.Set(np.p, document.FieldPersonas, np.key); err != nil {
			return nil, err
		}
	}
	if b.defaultPersona != "" {
		if _, err := root.Set(b.defaultPersona, document.FieldPersonas, "default"); err != nil {
			return nil, err
		}
	}

	if _, err := root.Array(document.FieldSteps); err != nil {
		return nil, err
	}
	for _, sb := range b.steps {
		if sb.stepType == "" {
			return nil, fmt.Errorf("%w: step %q has no type", domain.ErrInputInvalid, sb.id)
		}
		if err := root.ArrayAppend(sb.object(), document.FieldSteps); err != nil {
			return nil, err
		}
	}
	return root.Bytes(), nil
}

// Build renders the workflow and parses it back into a Document.
func (b *Builder) Build() (*document.Document, error) {
	raw, err := b.JSON()
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow %q: %w", b.name, err)
	}
	return doc, nil
}
