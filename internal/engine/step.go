package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/weave/pkg/channel"
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persona"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/variables"
)

// Field names shared by several step types.
const (
	fieldMessage  = "message"
	fieldPrompt   = "prompt"
	fieldSaveTo   = "save_to"
	fieldDefault  = "default"
	fieldPersona  = "persona"
	fieldRetry    = "retry"
	fieldOnError  = "on_error"
	fieldMaxIter  = "max_iterations"
	fieldOptions  = "options"
	fieldQuestion = "question"
)

// Renderer transforms display text before it is written (e.g. markdown to ANSI).
type Renderer func(string) (string, error)

// errNoProvider is returned by Step.Query when the controller has no provider.
var errNoProvider = fmt.Errorf("%w: no provider configured", domain.ErrResourceUnavailable)

// Step is everything a handler may touch while executing one step.
type Step struct {
	ID   string
	Type string
	Node document.Node
	Doc  *document.Document
	Vars *variables.Context

	IO       ports.Channel
	Poll     channel.Poll
	Render   Renderer
	Provider ports.Provider
	Personas *persona.Registry
	Logger   *slog.Logger
}

// String returns a required string field.
func (s *Step) String(field string) (string, error) {
	return document.RequireString(s.Node, field)
}

// OptionalString returns a string field or def.
func (s *Step) OptionalString(field, def string) (string, error) {
	return document.OptionalString(s.Node, field, def)
}

// Text returns a required string field with variables substituted.
// Placeholders with no value are left verbatim and logged at debug level.
func (s *Step) Text(field string) (string, error) {
	v, err := s.String(field)
	if err != nil {
		return "", err
	}
	if missing := s.Vars.Unresolved(v); len(missing) > 0 && s.Logger != nil {
		s.Logger.Debug("unresolved placeholders", "step", s.ID, "field", field, "names", missing)
	}
	return s.Vars.Substitute(v), nil
}

// NextStep returns the step's own next_step field.
func (s *Step) NextStep() (string, error) {
	return document.RequireID(s.Node, document.FieldNextStep)
}

// Persona resolves the step's persona field, falling back to the document default.
// The result may be nil.
func (s *Step) Persona() *persona.Persona {
	name, _ := s.OptionalString(fieldPersona, "")
	return s.Personas.Find(name)
}

// Print writes text and flushes it.
func (s *Step) Print(ctx context.Context, text string) error {
	return channel.Print(ctx, s.IO, s.Poll, text)
}

// Println writes text followed by a newline and flushes it.
func (s *Step) Println(ctx context.Context, text string) error {
	return s.Print(ctx, text+"\n")
}

// Ask writes a prompt on its own line and waits for one answer line.
func (s *Step) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt != "" && !strings.HasSuffix(prompt, " ") && !strings.HasSuffix(prompt, "\n") {
		prompt += " "
	}
	if err := s.Print(ctx, prompt); err != nil {
		return "", err
	}
	return s.ReadLine(ctx)
}

// ReadLine reads one line of user input. Resource-unavailable failures (relay
// errors, poll timeouts) pass through so the step's retry policy applies.
// End of input and other failures are reported as domain.ErrInputInvalid;
// end of input is still matchable as io.EOF.
func (s *Step) ReadLine(ctx context.Context) (string, error) {
	line, err := channel.ReadLine(ctx, s.IO, s.Poll)
	if err == nil {
		return line, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, domain.ErrInputInvalid) || errors.Is(err, domain.ErrResourceUnavailable) {
		return "", err
	}
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: input closed: %w", domain.ErrInputInvalid, err)
	}
	return "", fmt.Errorf("%w: reading input: %w", domain.ErrInputInvalid, err)
}

// Save stores value at key.
func (s *Step) Save(key, value string) error {
	return s.Vars.Set(key, value)
}

// Query sends prompt to the provider.
func (s *Step) Query(ctx context.Context, prompt string) (string, error) {
	if s.Provider == nil {
		return "", errNoProvider
	}
	return s.Provider.Query(ctx, prompt)
}
