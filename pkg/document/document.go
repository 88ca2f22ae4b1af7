package document

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/tidwall/gjson"
)

// Field names of the workflow document format.
const (
	FieldWorkflowName = "workflow_name"
	FieldDescription  = "description"
	FieldPersonas     = "personas"
	FieldSteps        = "steps"
	FieldPhases       = "phases"
	FieldStep         = "step"
	FieldType         = "type"
	FieldNextStep     = "next_step"
)

// Document is an immutable, parsed workflow document.
type Document struct {
	raw    []byte
	root   gjson.Result
	path   string
	legacy bool
	steps  []Node
	index  map[string]int
}

// Parse builds a Document from raw JSON.
// It fails with domain.ErrProtocolFormat when the source is not a JSON object
// or has no recognizable step container.
func Parse(raw []byte) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: document is not valid JSON", domain.ErrProtocolFormat)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: document root must be an object", domain.ErrProtocolFormat)
	}

	doc := &Document{
		raw:   append([]byte(nil), raw...),
		root:  root,
		index: make(map[string]int),
	}
	if err := doc.collectSteps(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFile reads and parses a workflow document from disk.
func ParseFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read workflow %s: %w", domain.ErrSystem, path, err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		doc.path = abs
	} else {
		doc.path = path
	}
	return doc, nil
}

func (d *Document) collectSteps() error {
	root := d.Root()
	if steps, ok := root.Field(FieldSteps); ok {
		items, err := steps.Array()
		if err != nil {
			return fmt.Errorf("'%s': %w", FieldSteps, err)
		}
		return d.addSteps(items)
	}

	phases, ok := root.Field(FieldPhases)
	if !ok {
		return fmt.Errorf("%w: document has neither '%s' nor '%s'", domain.ErrProtocolFormat, FieldSteps, FieldPhases)
	}
	d.legacy = true
	items, err := phases.Array()
	if err != nil {
		return fmt.Errorf("'%s': %w", FieldPhases, err)
	}
	for i, phase := range items {
		steps, ok := phase.Field(FieldSteps)
		if !ok {
			return fmt.Errorf("%w: phase %d has no '%s'", domain.ErrProtocolFormat, i, FieldSteps)
		}
		stepItems, err := steps.Array()
		if err != nil {
			return fmt.Errorf("phase %d: %w", i, err)
		}
		if err := d.addSteps(stepItems); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) addSteps(items []Node) error {
	for _, item := range items {
		if !item.IsObject() {
			return fmt.Errorf("%w: step %d is not an object", domain.ErrProtocolFormat, len(d.steps))
		}
		idNode, ok := item.Field(FieldStep)
		if !ok {
			return fmt.Errorf("%w: step %d has no '%s' id", domain.ErrProtocolFormat, len(d.steps), FieldStep)
		}
		id, err := idNode.ID()
		if err != nil {
			return fmt.Errorf("step %d: %w", len(d.steps), err)
		}
		if _, dup := d.index[id]; dup {
			return fmt.Errorf("%w: duplicate step id '%s'", domain.ErrProtocolFormat, id)
		}
		d.index[id] = len(d.steps)
		d.steps = append(d.steps, item)
	}
	return nil
}

// Root returns the document's top-level node.
func (d *Document) Root() Node {
	return newNode(d.root)
}

// Raw returns the source buffer.
func (d *Document) Raw() []byte {
	return d.raw
}

// Path returns the absolute path the document was read from, if any.
func (d *Document) Path() string {
	return d.path
}

// Dir returns the directory relative references are resolved against.
func (d *Document) Dir() string {
	if d.path == "" {
		return "."
	}
	return filepath.Dir(d.path)
}

// Name returns the workflow_name field, if present.
func (d *Document) Name() string {
	return d.stringField(FieldWorkflowName)
}

// Description returns the description field, if present.
func (d *Document) Description() string {
	return d.stringField(FieldDescription)
}

func (d *Document) stringField(name string) string {
	if n, ok := d.Root().Field(name); ok {
		if s, err := n.String(); err == nil {
			return s
		}
	}
	return ""
}

// Legacy reports whether the steps were read from phases[].steps[].
func (d *Document) Legacy() bool {
	return d.legacy
}

// EntryStepID returns the id execution starts at.
func (d *Document) EntryStepID() string {
	if d.legacy {
		if _, ok := d.index[domain.LegacyEntryStepID]; ok {
			return domain.LegacyEntryStepID
		}
	}
	if len(d.steps) == 0 {
		return domain.ExitStepID
	}
	id, _ := d.steps[0].Field(FieldStep)
	s, _ := id.ID()
	return s
}

// Step finds the step object with the given id.
func (d *Document) Step(id string) (Node, bool) {
	i, ok := d.index[id]
	if !ok {
		return Node{}, false
	}
	return d.steps[i], true
}

// Steps returns every step in declaration order.
func (d *Document) Steps() []Node {
	out := make([]Node, len(d.steps))
	copy(out, d.steps)
	return out
}

// StepIDs returns every step id in declaration order.
func (d *Document) StepIDs() []string {
	ids := make([]string, len(d.steps))
	for id, i := range d.index {
		ids[i] = id
	}
	return ids
}

// Personas returns the personas object, if declared.
func (d *Document) Personas() (Node, bool) {
	return d.Root().Field(FieldPersonas)
}
