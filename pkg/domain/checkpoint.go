package domain

import (
	"fmt"
	"time"
)

// Checkpoint is a resumable snapshot of a controller taken between steps.
type Checkpoint struct {
	RunID          string            `json:"run_id"`
	Workflow       string            `json:"workflow"`
	CurrentStepID  string            `json:"current_step_id"`
	PreviousStepID string            `json:"previous_step_id,omitempty"`
	StepCount      int               `json:"step_count"`
	LoopStartID    string            `json:"loop_start_step_id,omitempty"`
	LoopCount      int               `json:"loop_iteration_count,omitempty"`
	Variables      map[string]string `json:"variables"`
	SavedAt        time.Time         `json:"saved_at"`
}

// Done reports whether the snapshot was taken after the workflow finished.
func (c *Checkpoint) Done() bool {
	return c.CurrentStepID == ExitStepID
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	out := *c
	out.Variables = make(map[string]string, len(c.Variables))
	for k, v := range c.Variables {
		out.Variables[k] = v
	}
	return &out
}

// Validate checks the fields every store relies on.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return fmt.Errorf("%w: checkpoint run id cannot be empty", ErrInputInvalid)
	}
	return nil
}
