package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// MaxChoiceAttempts is how many invalid selections user_choose tolerates.
const MaxChoiceAttempts = 3

// decide evaluates condition and returns if_true or if_false.
func decide(_ context.Context, s *Step) (string, error) {
	src, err := s.String("condition")
	if err != nil {
		return "", err
	}
	ifTrue, err := document.RequireID(s.Node, "if_true")
	if err != nil {
		return "", err
	}
	ifFalse, err := document.RequireID(s.Node, "if_false")
	if err != nil {
		return "", err
	}

	cond, err := ParseCondition(src)
	if err != nil {
		return "", err
	}
	ok, err := cond.Eval(s.Vars)
	if err != nil {
		return "", err
	}
	s.Logger.Debug("condition evaluated", "condition", src, "result", ok)
	if ok {
		return ifTrue, nil
	}
	return ifFalse, nil
}

// choice is one user_choose option.
type choice struct {
	Label string
	Value string
	Next  string
}

func parseChoices(s *Step) ([]choice, error) {
	node, ok := s.Node.Field(fieldOptions)
	if !ok {
		return nil, &domain.MissingFieldError{Field: fieldOptions}
	}
	items, err := node.Array()
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", fieldOptions, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: field '%s' is empty", domain.ErrProtocolFormat, fieldOptions)
	}

	var fallback string
	out := make([]choice, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: option %d is not an object", domain.ErrProtocolFormat, i+1)
		}
		label, err := document.OptionalString(item, "label", "")
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i+1, err)
		}
		value, err := document.OptionalString(item, "value", "")
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i+1, err)
		}
		if label == "" && value == "" {
			return nil, fmt.Errorf("%w: option %d needs a label or a value", domain.ErrProtocolFormat, i+1)
		}
		if label == "" {
			label = value
		}
		if value == "" {
			value = label
		}

		next := ""
		if _, ok := item.Field(document.FieldNextStep); ok {
			if next, err = document.RequireID(item, document.FieldNextStep); err != nil {
				return nil, fmt.Errorf("option %d: %w", i+1, err)
			}
		} else {
			if fallback == "" {
				if fallback, err = s.NextStep(); err != nil {
					return nil, fmt.Errorf("option %d has no next_step: %w", i+1, err)
				}
			}
			next = fallback
		}
		out = append(out, choice{Label: s.Vars.Substitute(label), Value: value, Next: next})
	}
	return out, nil
}

// match resolves an answer by number, value or label (case-insensitive).
func match(choices []choice, answer string) (choice, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return choice{}, false
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	for _, c := range choices {
		if c.Value == answer {
			return c, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, answer) {
			return c, true
		}
	}
	return choice{}, false
}

// userChoose lists the options and returns the next_step of the selected one.
func userChoose(ctx context.Context, s *Step) (string, error) {
	prompt, err := s.Text(fieldPrompt)
	if err != nil {
		return "", err
	}
	choices, err := parseChoices(s)
	if err != nil {
		return "", err
	}
	saveTo, err := s.OptionalString(fieldSaveTo, "")
	if err != nil {
		return "", err
	}

	var menu strings.Builder
	menu.WriteString(prompt)
	menu.WriteString("\n")
	for i, c := range choices {
		fmt.Fprintf(&menu, "  %d) %s\n", i+1, c.Label)
	}
	if err := s.Print(ctx, menu.String()); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= MaxChoiceAttempts; attempt++ {
		answer, err := s.Ask(ctx, ">")
		if err != nil {
			return "", err
		}
		if c, ok := match(choices, answer); ok {
			if saveTo != "" {
				if err := s.Save(saveTo, c.Value); err != nil {
					return "", err
				}
			}
			return c.Next, nil
		}
		if attempt < MaxChoiceAttempts {
			if err := s.Println(ctx, fmt.Sprintf("Invalid choice %q, enter 1-%d.", answer, len(choices))); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: no valid choice after %d attempts", domain.ErrInputInvalid, MaxChoiceAttempts)
}
