// Package middleware wraps snapshot stores with cross-cutting persistence
// behavior such as encryption at rest and PII masking.
package middleware

import (
	"context"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
)

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies mws to store, the first middleware being the outermost.
// When store archives results, the returned store does too.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	wrapped := store
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	if archive, ok := store.(ports.ResultArchive); ok {
		return &archived{SnapshotStore: wrapped, archive: archive}
	}
	return wrapped
}

type archived struct {
	ports.SnapshotStore
	archive ports.ResultArchive
}

func (a *archived) Results(ctx context.Context, gameType domain.GameType, limit int) ([]domain.GameResult, error) {
	return a.archive.Results(ctx, gameType, limit)
}
