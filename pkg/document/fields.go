package document

import (
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
)

// RequireString returns a mandatory string field of a step.
func RequireString(step Node, field string) (string, error) {
	n, ok := step.Field(field)
	if !ok {
		return "", &domain.MissingFieldError{Field: field}
	}
	s, err := n.String()
	if err != nil {
		return "", fmt.Errorf("field '%s': %w", field, err)
	}
	return s, nil
}

// OptionalString returns a string field of a step or def when absent.
func OptionalString(step Node, field, def string) (string, error) {
	n, ok := step.Field(field)
	if !ok {
		return def, nil
	}
	s, err := n.String()
	if err != nil {
		return "", fmt.Errorf("field '%s': %w", field, err)
	}
	return s, nil
}

// RequireID returns a mandatory step-id field (string or number).
func RequireID(step Node, field string) (string, error) {
	n, ok := step.Field(field)
	if !ok {
		return "", &domain.MissingFieldError{Field: field}
	}
	id, err := n.ID()
	if err != nil {
		return "", fmt.Errorf("field '%s': %w", field, err)
	}
	return id, nil
}

// OptionalInt returns an integer field of a step and whether it was present.
func OptionalInt(step Node, field string) (int, bool, error) {
	n, ok := step.Field(field)
	if !ok {
		return 0, false, nil
	}
	v, err := n.Int()
	if err != nil {
		return 0, true, fmt.Errorf("field '%s': %w", field, err)
	}
	return v, true, nil
}

// OptionalBool returns a boolean field of a step or def when absent.
func OptionalBool(step Node, field string, def bool) (bool, error) {
	n, ok := step.Field(field)
	if !ok {
		return def, nil
	}
	v, err := n.Bool()
	if err != nil {
		return false, fmt.Errorf("field '%s': %w", field, err)
	}
	return v, nil
}

// StepID returns the id of a step node.
func StepID(step Node) (string, error) {
	return RequireID(step, FieldStep)
}

// StepType returns the type of a step node.
func StepType(step Node) (string, error) {
	return RequireString(step, FieldType)
}
