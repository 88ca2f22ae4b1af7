package domain

import "time"

// ExitStepID is the sentinel step id that terminates a workflow.
const ExitStepID = "EXIT"

// LegacyEntryStepID is the first step of documents using the phases layout.
const LegacyEntryStepID = "1"

// Step type constants. The default dispatch table maps each of these to a handler.
const (
	StepDisplay      = "display"
	StepSaveFile     = "save_file"
	StepUserAsk      = "user_ask"
	StepDecide       = "decide"
	StepUserChoose   = "user_choose"
	StepCIAsk        = "ci_ask"
	StepCIAnalyze    = "ci_analyze"
	StepCIAskSeries  = "ci_ask_series"
	StepCIPresent    = "ci_present"
	StepUserCIChat   = "user_ci_chat"
	StepWorkflowCall = "workflow_call"
	StepParallel     = "parallel"

	// StepUserInputAlias is the single alias entry of the dispatch table (-> user_ask).
	StepUserInputAlias = "user_input"
)

// Execution limits.
const (
	DefaultMaxSteps          = 10000
	DefaultMaxIterations     = 100
	DefaultMaxRecursionDepth = 5
	MaxPersonas              = 16

	DefaultRetryDelay = time.Second
	MaxRetryDelay     = 30 * time.Second
)

// Well-known context keys.
const (
	// KeyTimestamp is populated by file-writing steps when absent.
	KeyTimestamp = "timestamp"
	// KeyLastError holds the message of the last failure absorbed by on_error.
	KeyLastError = "last_error"
)

// CompletionMarker is written at save_to by workflow_call once the child finished.
const CompletionMarker = "completed"
