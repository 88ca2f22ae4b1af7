package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cp := &domain.Checkpoint{
			RunID:         runID,
			Workflow:      "contract.json",
			CurrentStepID: "3",
			StepCount:     2,
			Variables:     map[string]string{"foo": "bar"},
		}
		require.NoError(t, store.Save(ctx, cp), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "3", loaded.CurrentStepID)
		assert.Equal(t, 2, loaded.StepCount)
		assert.Equal(t, "bar", loaded.Variables["foo"])

		// Mutating the loaded copy must not affect the store.
		loaded.Variables["foo"] = "changed"
		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "bar", again.Variables["foo"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, runID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runID))
		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("Empty RunID", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, &domain.Checkpoint{}))
	})
}
