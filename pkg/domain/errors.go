package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the engine matches exactly one of
// these with errors.Is.
var (
	// ErrProtocolFormat is returned when the document is missing a required field
	// or carries a value of the wrong JSON type.
	ErrProtocolFormat = errors.New("protocol format error")

	// ErrInputInvalid is returned for unknown step types, malformed limit data and
	// exceeded loop, recursion or step-count limits.
	ErrInputInvalid = errors.New("invalid input")

	// ErrResourceUnavailable is returned when the provider times out or the I/O
	// channel is closed or exhausted.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrSystem is returned for local failures such as file writes.
	ErrSystem = errors.New("system error")
)

var (
	// ErrRetryExhausted is matched by RetryExhaustedError.
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrStopped is returned by ExecuteAllSteps when the caller's context is done.
	ErrStopped = errors.New("execution stopped")

	// ErrCheckpointNotFound is returned when a run id cannot be found in a store.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// StepError reports a failure while executing a single step.
// It unwraps to both its class (Kind) and the underlying cause.
type StepError struct {
	StepID   string
	StepType string
	Kind     error
	Err      error
}

func (e *StepError) Error() string {
	if e.StepType == "" {
		return fmt.Sprintf("step '%s': %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("step '%s' (%s): %v", e.StepID, e.StepType, e.Err)
}

func (e *StepError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// RetryExhaustedError is returned when every attempt of a retried step failed.
type RetryExhaustedError struct {
	Attempts  int
	LastError error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.LastError}
}

// LimitError reports an exceeded loop, recursion or step-count bound.
type LimitError struct {
	Limit string
	Max   int
	Value int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.Limit, e.Value, e.Max)
}

func (e *LimitError) Unwrap() error { return ErrInputInvalid }

// MissingFieldError is returned when a step lacks a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field '%s'", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrProtocolFormat }

// Classify returns the error class of err, defaulting to ErrResourceUnavailable
// for causes that carry none (provider and transport failures).
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProtocolFormat):
		return ErrProtocolFormat
	case errors.Is(err, ErrInputInvalid):
		return ErrInputInvalid
	case errors.Is(err, ErrSystem):
		return ErrSystem
	default:
		return ErrResourceUnavailable
	}
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProtocolFormat) || errors.Is(err, ErrInputInvalid) || errors.Is(err, ErrStopped)
}
