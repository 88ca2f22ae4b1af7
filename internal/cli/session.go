package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/pkg/ports"
)

// OpenStore loads the configuration at configPath and opens its checkpoint store.
func OpenStore(configPath string) (ports.CheckpointStore, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Checkpoint.Kind == config.StoreNone {
		cfg.Checkpoint.Kind = config.StoreFile
	}
	return NewStore(cfg.Checkpoint)
}

// ListRuns prints the ids of every stored run.
func ListRuns(ctx context.Context, store ports.CheckpointStore, w io.Writer) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing runs: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No stored runs found.")
		return nil
	}
	fmt.Fprintln(w, "Stored Runs:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectRun prints the checkpoint of runID as indented JSON.
func InspectRun(ctx context.Context, store ports.CheckpointStore, runID string, w io.Writer) error {
	cp, err := store.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("error loading run '%s': %w", runID, err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveRuns deletes each run and reports every failure.
func RemoveRuns(ctx context.Context, store ports.CheckpointStore, runIDs []string, w io.Writer) error {
	var errs []error
	for _, id := range runIDs {
		if err := store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed run '%s'\n", id)
	}
	return errors.Join(errs...)
}
