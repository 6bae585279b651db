package memory_test

import (
	"context"
	"testing"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/memory"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	snap := &domain.Snapshot{SessionID: "s", Players: []domain.Player{{ID: "a"}}}

	require.NoError(t, store.Save(ctx, "s", snap))
	snap.Players[0].ID = "changed"

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.Players[0].ID)

	loaded.Players[0].ID = "again"
	reloaded, _ := store.Load(ctx, "s")
	assert.Equal(t, "a", reloaded.Players[0].ID)
}
