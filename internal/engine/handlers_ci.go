package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// DefaultMaxChatTurns bounds user_ci_chat when the step sets no max_turns.
const DefaultMaxChatTurns = 50

const (
	rephraseInstruction = "Rephrase the following question for the user. Keep its meaning and reply with the question only."
	presentInstruction  = "Present the following message to the user in your own voice. Reply with the message only."
)

// AnalysisPlaceholder is stored by ci_analyze when the provider fails.
type AnalysisPlaceholder struct {
	Status   string `json:"status"`
	Analysis string `json:"analysis"`
	Error    string `json:"error"`
}

// rephrase asks the provider to reword text in the persona's voice.
// Any provider failure falls back to text unless ctx is done.
func rephrase(ctx context.Context, s *Step, instruction, text string) (string, error) {
	if s.Provider == nil {
		return text, nil
	}
	prompt := s.Persona().Decorate(instruction + "\n\n" + text)
	out, err := s.Query(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.Logger.Warn("provider failed, using template text", "err", err)
		return text, nil
	}
	if out = strings.TrimSpace(out); out == "" {
		return text, nil
	}
	return out, nil
}

// ciAsk shows a provider-rephrased prompt and stores the user's answer.
func ciAsk(ctx context.Context, _ *Controller, s *Step) error {
	prompt, err := s.Text(fieldPrompt)
	if err != nil {
		return err
	}
	key, err := s.String(fieldSaveTo)
	if err != nil {
		return err
	}

	question, err := rephrase(ctx, s, rephraseInstruction, prompt)
	if err != nil {
		return err
	}
	answer, err := s.Ask(ctx, question)
	if err != nil {
		return err
	}
	return s.Save(key, answer)
}

// ciAnalyze sends input and instruction to the provider and stores the reply,
// or a placeholder JSON document when the provider is unavailable.
func ciAnalyze(ctx context.Context, _ *Controller, s *Step) error {
	key, err := s.String(fieldSaveTo)
	if err != nil {
		return err
	}
	instruction, err := s.OptionalString(fieldPrompt, "")
	if err != nil {
		return err
	}
	if instruction == "" {
		if instruction, err = s.String("instruction"); err != nil {
			var missing *domain.MissingFieldError
			if errors.As(err, &missing) {
				return &domain.MissingFieldError{Field: fieldPrompt}
			}
			return err
		}
	}
	input, err := s.OptionalString("input", "")
	if err != nil {
		return err
	}
	show, err := document.OptionalBool(s.Node, "display", false)
	if err != nil {
		return err
	}

	prompt := s.Vars.Substitute(instruction)
	if input != "" {
		prompt += "\n\n" + s.Vars.Substitute(input)
	}

	result, err := s.Query(ctx, s.Persona().Decorate(prompt))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Logger.Warn("analysis unavailable, storing placeholder", "err", err)
		raw, _ := json.Marshal(AnalysisPlaceholder{Status: "unavailable", Error: err.Error()})
		return s.Save(key, string(raw))
	}

	if err := s.Save(key, result); err != nil {
		return err
	}
	if show {
		return s.Println(ctx, result)
	}
	return nil
}

// ciPresent shows a message in the persona's voice, falling back to the raw text.
func ciPresent(ctx context.Context, _ *Controller, s *Step) error {
	msg, err := s.Text(fieldMessage)
	if err != nil {
		return err
	}
	key, err := s.OptionalString(fieldSaveTo, "")
	if err != nil {
		return err
	}

	text, err := rephrase(ctx, s, presentInstruction, msg)
	if err != nil {
		return err
	}
	if err := s.Println(ctx, text); err != nil {
		return err
	}
	if key != "" {
		return s.Save(key, text)
	}
	return nil
}

// ciAskSeries asks each question in turn and stores answers at save_to.<id>.
func ciAskSeries(ctx context.Context, _ *Controller, s *Step) error {
	prefix, err := s.String(fieldSaveTo)
	if err != nil {
		return err
	}
	conversational, err := document.OptionalBool(s.Node, "conversational", false)
	if err != nil {
		return err
	}
	node, ok := s.Node.Field("questions")
	if !ok {
		return &domain.MissingFieldError{Field: "questions"}
	}
	items, err := node.Array()
	if err != nil {
		return fmt.Errorf("field 'questions': %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: field 'questions' is empty", domain.ErrProtocolFormat)
	}

	for i, item := range items {
		id := fmt.Sprintf("q%d", i+1)
		if idNode, ok := item.Field("id"); ok {
			if id, err = idNode.ID(); err != nil {
				return fmt.Errorf("question %d id: %w", i+1, err)
			}
		}
		text, err := document.RequireString(item, fieldQuestion)
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		text = s.Vars.Substitute(text)

		if conversational {
			if text, err = rephrase(ctx, s, rephraseInstruction, text); err != nil {
				return err
			}
		}
		answer, err := s.Ask(ctx, text)
		if err != nil {
			return err
		}
		if err := s.Save(prefix+"."+id, answer); err != nil {
			return err
		}
	}
	return nil
}

// userCIChat alternates user lines and provider replies until the user leaves.
func userCIChat(ctx context.Context, _ *Controller, s *Step) error {
	key, err := s.OptionalString(fieldSaveTo, "")
	if err != nil {
		return err
	}
	opening, err := s.OptionalString(fieldPrompt, "")
	if err != nil {
		return err
	}
	maxTurns, ok, err := document.OptionalInt(s.Node, "max_turns")
	if err != nil {
		return err
	}
	if !ok || maxTurns <= 0 {
		maxTurns = DefaultMaxChatTurns
	}
	if s.Provider == nil {
		return errNoProvider
	}

	p := s.Persona()
	if opening = s.Vars.Substitute(opening); opening != "" {
		if err := s.Println(ctx, opening); err != nil {
			return err
		}
	} else if p != nil && p.Greeting != "" {
		if err := s.Println(ctx, p.Greeting); err != nil {
			return err
		}
	}

	var transcript strings.Builder
	for turn := 0; turn < maxTurns; turn++ {
		line, err := s.Ask(ctx, ">")
		if errors.Is(err, io.EOF) && ctx.Err() == nil {
			s.Logger.Debug("chat input ended", "turns", turn)
			break
		}
		if err != nil {
			return err
		}
		if isChatExit(line) {
			break
		}

		prompt := transcript.String() + "User: " + line + "\nAssistant:"
		reply, err := s.Query(ctx, p.Decorate(prompt))
		if err != nil {
			return err
		}
		reply = strings.TrimSpace(reply)
		if err := s.Println(ctx, reply); err != nil {
			return err
		}
		fmt.Fprintf(&transcript, "User: %s\nAssistant: %s\n", line, reply)
	}

	if key == "" || transcript.Len() == 0 {
		return nil
	}
	prev, _ := s.Vars.Get(key)
	return s.Save(key, prev+transcript.String())
}

func isChatExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "exit", "quit":
		return true
	}
	return false
}
