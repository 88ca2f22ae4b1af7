package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/weave/internal/adapters/file"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunManagement(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	var out bytes.Buffer

	require.NoError(t, ListRuns(ctx, store, &out))
	assert.Equal(t, "No stored runs found.\n", out.String())

	for _, id := range []string{"b", "a"} {
		require.NoError(t, store.Save(ctx, &domain.Checkpoint{RunID: id, CurrentStepID: "2", Variables: map[string]string{"k": id}}))
	}

	out.Reset()
	require.NoError(t, ListRuns(ctx, store, &out))
	assert.Equal(t, "Stored Runs:\n- a\n- b\n", out.String())

	out.Reset()
	require.NoError(t, InspectRun(ctx, store, "a", &out))
	assert.Contains(t, out.String(), `"current_step_id": "2"`)
	assert.Contains(t, out.String(), `"k": "a"`)

	err := InspectRun(ctx, store, "zzz", &out)
	assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)

	out.Reset()
	require.NoError(t, RemoveRuns(ctx, store, []string{"a", "b"}, &out))
	assert.Equal(t, "Removed run 'a'\nRemoved run 'b'\n", out.String())
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	s, closeFn, err := OpenStore("")
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &session.Manager{}, s)
	assert.IsType(t, &file.Store{}, s.(*session.Manager).Store(), "run management falls back to the file store")

	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("checkpoint:\n  kind: memory\n"), 0o644))
	s, _, err = OpenStore(cfgPath)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s.(*session.Manager).Store())

	_, _, err = OpenStore(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
