package ports

import (
	"context"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionID: id,
			GameType:  "prisoners_dilemma",
			Status:    domain.StatusInProgress,
			Players: []domain.Player{
				{ID: "p1", Source: domain.SourceHuman},
				{ID: "p2", Source: domain.SourceAI, Provider: "mock"},
			},
			TurnOwner: "p1",
			Turn:      2,
			Valid:     []string{"cooperate", "defect"},
			State:     map[string]any{"round": 1},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(sessionID)

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.SessionID, loaded.SessionID)
		assert.Equal(t, snap.Status, loaded.Status)
		assert.Equal(t, snap.TurnOwner, loaded.TurnOwner)
		assert.Equal(t, snap.Turn, loaded.Turn)
		assert.Equal(t, snap.Players, loaded.Players)
		// Opaque state goes through JSON in most stores; only check presence.
		assert.NotNil(t, loaded.State)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := newSnapshot(sessionID)
		snap.Status = domain.StatusEnded
		snap.Result = &domain.GameResult{SessionID: sessionID, Winners: []string{"p1"}, Outcome: "p1 wins"}
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusEnded, loaded.Status)
		require.NotNil(t, loaded.Result)
		assert.Equal(t, []string{"p1"}, loaded.Result.Winners)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrGameNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrGameNotFound, "Load after Delete should return ErrGameNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
