package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// Controller is the part of the step executor the runner drives.
type Controller interface {
	ExecuteCurrentStep(ctx context.Context) error
	Done() bool
	CurrentStepID() string
	Checkpoint() *domain.Checkpoint
	Restore(cp *domain.Checkpoint) error
}

// Runner executes a controller step by step, checkpointing as it goes.
type Runner struct {
	// Store is the persistence adapter for durable execution.
	// If nil, runs are ephemeral.
	Store ports.CheckpointStore

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Signals turns SIGINT/SIGTERM into a graceful stop.
	Signals bool

	// DeleteOnFinish removes the checkpoint when the workflow completes.
	DeleteOnFinish bool
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Signals: true,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes steps until EXIT, an error, or a stop request. A stop (ctx
// done or a signal) checkpoints the controller and returns domain.ErrStopped.
func (r *Runner) Run(ctx context.Context, ctrl Controller) error {
	signals := NewSignalManager(ctx, r.Signals)
	defer signals.Stop()

	for !ctrl.Done() {
		stepCtx := signals.Context()
		if stepCtx.Err() != nil {
			return r.stop(ctrl, stepCtx.Err())
		}

		if err := ctrl.ExecuteCurrentStep(stepCtx); err != nil {
			// Ctrl+C may surface as end of input before the signal lands.
			if errors.Is(err, io.EOF) {
				signals.CheckRace()
			}
			if stepCtx.Err() != nil {
				return r.stop(ctrl, stepCtx.Err())
			}
			return err
		}

		// Commit phase: the checkpoint is taken between steps.
		if err := r.save(context.Background(), ctrl); err != nil {
			return fmt.Errorf("critical persistence error: %w", err)
		}
	}

	if r.Store != nil && r.DeleteOnFinish {
		runID := ctrl.Checkpoint().RunID
		if err := r.Store.Delete(context.Background(), runID); err != nil {
			return fmt.Errorf("failed to delete finished run %s: %w", runID, err)
		}
		r.Logger.Debug("checkpoint deleted", "run_id", runID)
	}
	return nil
}

// Resume restores ctrl from the store when a checkpoint exists for its run id.
// It reports whether a checkpoint was found; otherwise the run id is reserved
// by saving the fresh controller.
func (r *Runner) Resume(ctx context.Context, ctrl Controller) (bool, error) {
	if r.Store == nil {
		return false, nil
	}
	runID := ctrl.Checkpoint().RunID

	cp, err := r.Store.Load(ctx, runID)
	if err == nil {
		if err := ctrl.Restore(cp); err != nil {
			return false, fmt.Errorf("failed to restore run %s: %w", runID, err)
		}
		r.Logger.Info("run resumed", "run_id", runID, "step_id", cp.CurrentStepID)
		return true, nil
	}
	if !errors.Is(err, domain.ErrCheckpointNotFound) {
		return false, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if err := r.save(ctx, ctrl); err != nil {
		return false, fmt.Errorf("failed to initialize run %s: %w", runID, err)
	}
	return false, nil
}

func (r *Runner) stop(ctrl Controller, cause error) error {
	r.Logger.Info("run interrupted", "step_id", ctrl.CurrentStepID(), "cause", cause)
	if err := r.save(context.Background(), ctrl); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", domain.ErrStopped, cause), err)
	}
	return fmt.Errorf("%w at step '%s': %w", domain.ErrStopped, ctrl.CurrentStepID(), cause)
}

func (r *Runner) save(ctx context.Context, ctrl Controller) error {
	if r.Store == nil {
		return nil
	}
	cp := ctrl.Checkpoint()
	if err := r.Store.Save(ctx, cp); err != nil {
		return err
	}
	r.Logger.Debug("checkpoint saved", "run_id", cp.RunID, "step_id", cp.CurrentStepID)
	return nil
}
