// Package persona holds the named presentation profiles consulted by AI-driven steps.
package persona

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// Persona is a named prompt-shaping profile.
type Persona struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Style    string `json:"style"`
	Greeting string `json:"greeting"`
}

// Decorate prefixes prompt with the persona's identity line.
// A nil persona returns prompt unchanged.
func (p *Persona) Decorate(prompt string) string {
	if p == nil {
		return prompt
	}
	return p.Preamble() + "\n\n" + prompt
}

// Preamble returns the identity line: "You are {name}, a {role}. Your style is: {style}."
func (p *Persona) Preamble() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", p.Name)
	if p.Role != "" {
		fmt.Fprintf(&b, ", a %s", p.Role)
	}
	b.WriteString(".")
	if p.Style != "" {
		fmt.Fprintf(&b, " Your style is: %s.", strings.TrimSuffix(p.Style, "."))
	}
	return b.String()
}

// Registry looks personas up by name with fallback to a default.
type Registry struct {
	personas    map[string]*Persona
	order       []string
	defaultName string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{personas: make(map[string]*Persona)}
}

// Load builds a registry from the document's 'personas' object.
// A document without personas yields an empty registry.
func Load(doc *document.Document) (*Registry, error) {
	r := NewRegistry()
	node, ok := doc.Personas()
	if !ok {
		return r, nil
	}
	members, err := node.Members()
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", document.FieldPersonas, err)
	}
	for _, m := range members {
		if m.Key == "default" {
			name, err := m.Value.String()
			if err != nil {
				return nil, fmt.Errorf("personas.default: %w", err)
			}
			r.defaultName = name
			continue
		}
		if !m.Value.IsObject() {
			return nil, fmt.Errorf("%w: persona '%s' must be an object", domain.ErrProtocolFormat, m.Key)
		}
		p := &Persona{Name: m.Key}
		for field, dst := range map[string]*string{"name": &p.Name, "role": &p.Role, "style": &p.Style, "greeting": &p.Greeting} {
			v, err := document.OptionalString(m.Value, field, *dst)
			if err != nil {
				return nil, fmt.Errorf("persona '%s': %w", m.Key, err)
			}
			*dst = v
		}
		if err := r.register(m.Key, p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a persona under key.
func (r *Registry) Register(key string, p Persona) error {
	return r.register(key, &p)
}

func (r *Registry) register(key string, p *Persona) error {
	if _, exists := r.personas[key]; !exists {
		if len(r.order) >= domain.MaxPersonas {
			return fmt.Errorf("%w: more than %d personas", domain.ErrProtocolFormat, domain.MaxPersonas)
		}
		r.order = append(r.order, key)
	}
	r.personas[key] = p
	return nil
}

// SetDefault designates the default persona.
func (r *Registry) SetDefault(key string) {
	r.defaultName = key
}

// Find returns the named persona, or the default when name is empty or unknown.
// It returns nil when neither exists.
func (r *Registry) Find(name string) *Persona {
	if r == nil {
		return nil
	}
	if p, ok := r.personas[name]; ok {
		return p
	}
	return r.Default()
}

// Default returns the designated default persona, or nil.
func (r *Registry) Default() *Persona {
	if r == nil || r.defaultName == "" {
		return nil
	}
	return r.personas[r.defaultName]
}

// Names returns the registered persona keys in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len returns the number of personas.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
