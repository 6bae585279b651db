package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/file"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}

func TestFileStore_AtomicLayout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Snapshot{SessionID: "s1", Status: domain.StatusInProgress}))
	require.NoError(t, store.Save(ctx, "s1", &domain.Snapshot{SessionID: "s1", Status: domain.StatusEnded}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "s1.json", entries[0].Name())

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, loaded.Status)
}

func TestFileStore_Errors(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	t.Run("corrupt snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
		_, err := store.Load(ctx, "bad")
		assert.Equal(t, domain.KindSerializationError, domain.KindOf(err))
	})

	t.Run("path traversal", func(t *testing.T) {
		err := store.Save(ctx, "../escape", &domain.Snapshot{})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = store.Load(ctx, "../escape")
		assert.ErrorIs(t, err, domain.ErrGameNotFound)
	})

	t.Run("missing directory lists empty", func(t *testing.T) {
		ids, err := file.New(filepath.Join(dir, "nope")).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
