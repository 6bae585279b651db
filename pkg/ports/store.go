package ports

import (
	"context"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// SnapshotStore persists session snapshots so that sessions survive restarts
// and ended sessions keep serving their result after eviction from memory.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snapshot *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrGameNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// ResultArchive is implemented by stores that keep final results after the
// session snapshot is gone.
type ResultArchive interface {
	Results(ctx context.Context, gameType domain.GameType, limit int) ([]domain.GameResult, error)
}
