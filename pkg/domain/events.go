package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart EventType = "step_start"
	EventStepEnd   EventType = "step_end"
	EventRetry     EventType = "retry"
	EventLoop      EventType = "loop"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Depth     int       `json:"depth"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	StepID   string        `json:"step_id"`
	StepType string        `json:"step_type"`
	NextStep string        `json:"next_step,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RetryEvent is emitted before a failed step is attempted again.
type RetryEvent struct {
	EventBase
	StepID  string        `json:"step_id"`
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
	Err     error         `json:"-"`
}

// LoopEvent is emitted when navigation moves backwards onto a loop head.
type LoopEvent struct {
	EventBase
	HeadStepID string `json:"head_step_id"`
	Iteration  int    `json:"iteration"`
	Max        int    `json:"max"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
	OnRetry     func(context.Context, *RetryEvent)
	OnLoop      func(context.Context, *LoopEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart: chain(h.OnStepStart, other.OnStepStart),
		OnStepEnd:   chain(h.OnStepEnd, other.OnStepEnd),
		OnRetry:     chain(h.OnRetry, other.OnRetry),
		OnLoop:      chain(h.OnLoop, other.OnLoop),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
