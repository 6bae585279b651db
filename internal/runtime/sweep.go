package runtime

import (
	"context"
	"time"
)

// Sweep applies the timeout policy to every human turn that outlived its
// grace-widened deadline and evicts ended sessions older than the retention
// from memory. It returns the number of turns it timed out.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	var (
		swept   int
		expired []string
	)
	now := e.now()

	for _, sess := range e.snapshotLive() {
		if err := ctx.Err(); err != nil {
			return swept, err
		}

		if res, ended := sess.Result(); ended {
			if e.retention > 0 && now.Sub(res.EndedAt) >= e.retention {
				expired = append(expired, sess.ID())
			}
			continue
		}

		seat, ok := sess.TurnOwner()
		if !ok || !seat.Source.IsHuman() || !sess.Expired() {
			continue
		}
		out, err := e.Advance(ctx, sess.ID())
		if err != nil && !settled(err) {
			e.logger.Warn("sweep failed", "session_id", sess.ID(), "error", err)
			continue
		}
		if out.Err != nil {
			swept++
			e.logger.Info("turn timed out",
				"session_id", sess.ID(),
				"player_id", out.PlayerID,
				"policy", out.Policy,
			)
		}
	}

	e.evict(expired)
	return swept, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("sweep aborted", "error", err)
			}
		}
	}
}
