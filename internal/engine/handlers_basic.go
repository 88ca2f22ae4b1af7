package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/variables"
)

// TimestampLayout formats the timestamp variable set by save_file.
const TimestampLayout = "20060102_150405"

// display writes the substituted message on its own line.
func display(ctx context.Context, s *Step) error {
	text, err := s.Text(fieldMessage)
	if err != nil {
		return err
	}
	if s.Render != nil {
		if rendered, err := s.Render(text); err == nil {
			text = strings.TrimRight(rendered, "\n")
		} else {
			s.Logger.Warn("render failed, writing raw message", "err", err)
		}
	}
	return s.Println(ctx, text)
}

// saveFile writes the data object, with every string leaf substituted, to destination.
func saveFile(_ context.Context, s *Step) error {
	s.Vars.SetDefault(domain.KeyTimestamp, time.Now().Format(TimestampLayout))

	dest, err := s.Text("destination")
	if err != nil {
		return err
	}
	data, ok := s.Node.Field("data")
	if !ok {
		return &domain.MissingFieldError{Field: "data"}
	}
	if !data.IsObject() {
		return fmt.Errorf("%w: field 'data' must be an object", domain.ErrProtocolFormat)
	}

	var body bytes.Buffer
	if err := writeSubstituted(&body, data, s.Vars); err != nil {
		return fmt.Errorf("%w: field 'data': %w", domain.ErrProtocolFormat, err)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating %s: %w", domain.ErrSystem, dir, err)
		}
	}
	if err := os.WriteFile(dest, append(body.Bytes(), '\n'), 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", domain.ErrSystem, dest, err)
	}
	s.Logger.Debug("file saved", "destination", dest)
	return nil
}

// writeSubstituted re-serializes n compactly with every string leaf
// substituted. Keys keep their document order and numbers their exact text.
func writeSubstituted(b *bytes.Buffer, n document.Node, vars *variables.Context) error {
	switch {
	case n.IsObject():
		members, err := n.Members()
		if err != nil {
			return err
		}
		b.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONString(b, m.Key); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeSubstituted(b, m.Value, vars); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case n.IsArray():
		items, err := n.Array()
		if err != nil {
			return err
		}
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeSubstituted(b, item, vars); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case n.IsString():
		str, err := n.String()
		if err != nil {
			return err
		}
		return writeJSONString(b, vars.Substitute(str))
	default:
		b.WriteString(strings.TrimSpace(n.Raw()))
	}
	return nil
}

func writeJSONString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Truncate(b.Len() - 1) // Encode appends a newline
	return nil
}

// userAsk prompts for one line and stores it verbatim.
func userAsk(ctx context.Context, s *Step) error {
	prompt, err := s.Text(fieldPrompt)
	if err != nil {
		return err
	}
	key, err := s.String(fieldSaveTo)
	if err != nil {
		return err
	}
	def, err := s.OptionalString(fieldDefault, "")
	if err != nil {
		return err
	}

	answer, err := s.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	if answer == "" && def != "" {
		answer = s.Vars.Substitute(def)
	}
	return s.Save(key, answer)
}
