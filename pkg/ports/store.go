package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// CheckpointStore persists controller snapshots.
// This allows for durable execution, enabling "Stop & Resume" workflows.
type CheckpointStore interface {
	// Save persists the checkpoint under its RunID.
	Save(ctx context.Context, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint for a run.
	// Returns domain.ErrCheckpointNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a run.
	Delete(ctx context.Context, runID string) error

	// List returns the ids of all stored runs.
	List(ctx context.Context) ([]string, error)
}
