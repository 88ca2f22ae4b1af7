package dsl

import (
	"github.com/aretw0/weave/pkg/document"
	"github.com/aretw0/weave/pkg/domain"
)

// StepBuilder provides a fluent API for configuring one step.
type StepBuilder struct {
	id       string
	stepType string
	fields   map[string]any
}

// Option is one entry of a user_choose menu. An empty Next falls back to the
// step's next_step.
type Option struct {
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
	Next  string `json:"next_step,omitempty"`
}

// Type sets the step type.
func (s *StepBuilder) Type(stepType string) *StepBuilder {
	s.stepType = stepType
	return s
}

// Set assigns an arbitrary field, for step types without a helper.
func (s *StepBuilder) Set(field string, value any) *StepBuilder {
	s.fields[field] = value
	return s
}

// Display makes this a display step.
func (s *StepBuilder) Display(message string) *StepBuilder {
	return s.Type(domain.StepDisplay).Set("message", message)
}

// Ask makes this a user_ask step storing the answer at saveTo.
func (s *StepBuilder) Ask(prompt, saveTo string) *StepBuilder {
	return s.Type(domain.StepUserAsk).Set("prompt", prompt).Set("save_to", saveTo)
}

// Default sets the answer used when the user enters nothing.
func (s *StepBuilder) Default(value string) *StepBuilder {
	return s.Set("default", value)
}

// Choose makes this a user_choose step.
func (s *StepBuilder) Choose(prompt, saveTo string, options ...Option) *StepBuilder {
	s.Type(domain.StepUserChoose).Set("prompt", prompt).Set("options", options)
	if saveTo != "" {
		s.Set("save_to", saveTo)
	}
	return s
}

// Decide makes this a decide step.
func (s *StepBuilder) Decide(condition, ifTrue, ifFalse string) *StepBuilder {
	return s.Type(domain.StepDecide).
		Set("condition", condition).
		Set("if_true", ifTrue).
		Set("if_false", ifFalse)
}

// Analyze makes this a ci_analyze step.
func (s *StepBuilder) Analyze(prompt, input, saveTo string) *StepBuilder {
	s.Type(domain.StepCIAnalyze).Set("prompt", prompt).Set("save_to", saveTo)
	if input != "" {
		s.Set("input", input)
	}
	return s
}

// Call makes this a workflow_call step running the document at path.
func (s *StepBuilder) Call(path string, input, output map[string]string) *StepBuilder {
	s.Type(domain.StepWorkflowCall).Set("workflow", path)
	if len(input) > 0 {
		s.Set("input", input)
	}
	if len(output) > 0 {
		s.Set("output", output)
	}
	return s
}

// SaveFile makes this a save_file step writing the data object to destination.
func (s *StepBuilder) SaveFile(destination string, data map[string]any) *StepBuilder {
	return s.Type(domain.StepSaveFile).Set("destination", destination).Set("data", data)
}

// Persona selects the persona used by AI-driven steps.
func (s *StepBuilder) Persona(key string) *StepBuilder {
	return s.Set("persona", key)
}

// Next sets the step that runs after this one.
func (s *StepBuilder) Next(target string) *StepBuilder {
	return s.Set(document.FieldNextStep, target)
}

// Exit ends the workflow after this step.
func (s *StepBuilder) Exit() *StepBuilder {
	return s.Next(domain.ExitStepID)
}

// Retry attaches a retry policy.
func (s *StepBuilder) Retry(cfg domain.RetryConfig) *StepBuilder {
	retry := map[string]any{"max_retries": cfg.MaxRetries}
	if cfg.RetryDelayMS > 0 {
		retry["retry_delay_ms"] = cfg.RetryDelayMS
	}
	if cfg.Backoff != "" {
		retry["backoff"] = string(cfg.Backoff)
	}
	return s.Set("retry", retry)
}

// OnError jumps to target when the step fails.
func (s *StepBuilder) OnError(target string) *StepBuilder {
	return s.Set("on_error", target)
}

// SkipOnError continues at next_step when the step fails.
func (s *StepBuilder) SkipOnError() *StepBuilder {
	return s.Set("on_error", map[string]string{"action": "skip"})
}

// MaxIterations bounds the loops that jump back from or to this step.
func (s *StepBuilder) MaxIterations(n int) *StepBuilder {
	return s.Set("max_iterations", n)
}

func (s *StepBuilder) object() map[string]any {
	obj := make(map[string]any, len(s.fields)+2)
	for k, v := range s.fields {
		obj[k] = v
	}
	obj[document.FieldStep] = s.id
	obj[document.FieldType] = s.stepType
	return obj
}
