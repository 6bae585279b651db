package cli

import (
	"context"
	"fmt"
	"sync"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// SimulateOptions describes a batch of all-AI sessions.
type SimulateOptions struct {
	GameType  domain.GameType
	Sessions  int
	Players   int
	Parallel  int
	Providers []string
	Config    domain.GameConfig
}

// Simulate plays opts.Sessions sessions to the end, at most opts.Parallel at
// a time, and returns their results in creation order. Seats cycle through
// opts.Providers.
func Simulate(ctx context.Context, eng *genius.Engine, opts SimulateOptions) ([]domain.GameResult, error) {
	if opts.Sessions < 1 {
		return nil, domain.ConfigError("at least one session is required")
	}
	if opts.Players < 1 {
		return nil, domain.ConfigError("at least one player is required")
	}
	providers := opts.Providers
	if len(providers) == 0 {
		providers = []string{""}
	}

	results := make([]domain.GameResult, opts.Sessions)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i := range opts.Sessions {
		g.Go(func() error {
			snap, err := eng.CreateSession(ctx, opts.GameType, opts.Config)
			if err != nil {
				return err
			}
			players := make([]domain.Player, opts.Players)
			for p := range players {
				players[p] = domain.Player{
					ID:       fmt.Sprintf("ai-%d", p+1),
					Source:   domain.SourceAI,
					Provider: providers[p%len(providers)],
				}
			}
			if _, err := eng.StartSession(ctx, snap.SessionID, players); err != nil {
				return err
			}
			res, err := eng.Run(ctx, snap.SessionID)
			if err != nil {
				return fmt.Errorf("session %s: %w", snap.SessionID, err)
			}
			mu.Lock()
			results[i] = *res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
