package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"golang.org/x/term"
)

// createLogger configures the application logger from cfg.
// Debug forces the debug level. Logs go to w to stay out of the workflow output.
func createLogger(cfg *config.Config, debug bool, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(w, level, cfg.LogFormat == "json"), nil
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logRunStatus(logger *slog.Logger, w io.Writer, runID, stepID string, resumed, quiet bool) {
	if resumed {
		logger.Info("Run Resumed", "run_id", runID, "step_id", stepID)
		if !quiet {
			printSystemMessage(w, "Resuming run '%s' at step '%s'...", runID, stepID)
		}
		return
	}
	logger.Info("Run Started", "run_id", runID, "step_id", stepID)
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Enter Step", "step_id", e.StepID, "type", e.StepType, "depth", e.Depth)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.Debug("Leave Step (Error)", "step_id", e.StepID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("Leave Step", "step_id", e.StepID, "next_step", e.NextStep, "duration", e.Duration)
		},
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) {
			logger.Debug("Retry", "step_id", e.StepID, "attempt", e.Attempt, "delay", e.Delay, "err", e.Err)
		},
		OnLoop: func(ctx context.Context, e *domain.LoopEvent) {
			logger.Debug("Loop", "head_step_id", e.HeadStepID, "iteration", e.Iteration, "max", e.Max)
		},
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseVars turns key=value pairs into initial variables.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

func isInterrupted(err error) bool {
	return errors.Is(err, domain.ErrStopped) || errors.Is(err, context.Canceled)
}

func handleExecutionError(err error) error {
	if isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

func logCompletion(w io.Writer, runID, stepID string, err error, persisted, quiet bool) {
	if quiet {
		return
	}
	switch {
	case err == nil:
		printSystemMessage(w, "Workflow finished.")
	case isInterrupted(err):
		fmt.Fprintln(w)
		printSystemMessage(w, "Interrupted at step '%s'.", stepID)
		if persisted {
			printSystemMessage(w, "Resume with --run-id %s", runID)
		}
	}
}
