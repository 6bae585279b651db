package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/memory"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/persistence/middleware"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sensitiveSnapshot(id string) *domain.Snapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Snapshot{
		SessionID: id,
		GameType:  "liars_dice",
		Status:    domain.StatusInProgress,
		Players: []domain.Player{
			{ID: "alice", Source: domain.SourceHuman, Metadata: map[string]string{"email": "alice@example.com"}},
			{ID: "bot", Source: domain.SourceAI, Provider: "mock"},
		},
		TurnOwner: "alice",
		Turn:      3,
		State:     map[string]any{"dice": map[string]any{"alice": []any{1.0, 5.0}}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(), encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
	ports.RunSnapshotStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	original := sensitiveSnapshot("s1")
	require.NoError(t, store.Save(ctx, "s1", original))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", raw.SessionID)
	assert.Equal(t, domain.StatusInProgress, raw.Status)
	assert.Empty(t, raw.Players, "players must not be stored in clear")
	assert.Empty(t, raw.TurnOwner)
	fields, ok := raw.State.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, middleware.EnvelopeKey)
	assert.NotContains(t, fields, "dice")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, original.Players, loaded.Players)
	assert.Equal(t, "alice", loaded.TurnOwner)
	assert.Equal(t, 3, loaded.Turn)
	assert.Equal(t, original.State, loaded.State)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, "rot", sensitiveSnapshot("rot")))

	newStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})(underlying)
	loaded, err := newStore.Load(ctx, "rot")
	require.NoError(t, err, "fallback key should decrypt")

	loaded.Turn = 4
	require.NoError(t, newStore.Save(ctx, "rot", loaded))

	_, err = oldStore.Load(ctx, "rot")
	assert.Equal(t, domain.KindSerializationError, domain.KindOf(err), "old key alone cannot read re-encrypted data")
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", sensitiveSnapshot("plain")))

	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := store.Load(ctx, "plain")
	assert.ErrorIs(t, err, domain.ErrSerialization)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("old")},
	})
	assert.ErrorIs(t, err, domain.ErrConfig)
}
