package observability

import (
	"context"
	"log/slog"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// LogHooks returns lifecycle hooks that write every event to logger.
// Failures log at warn, everything else at debug, except start and end.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvent: func(ctx context.Context, e domain.Event) {
			attrs := []any{"session_id", e.SessionID, "turn", e.Turn}
			if e.PlayerID != "" {
				attrs = append(attrs, "player_id", e.PlayerID)
			}
			if e.Action != "" {
				attrs = append(attrs, "action", e.Action)
			}
			if e.Detail != "" {
				attrs = append(attrs, "detail", e.Detail)
			}

			switch {
			case e.ErrorKind != "":
				logger.WarnContext(ctx, string(e.Type), append(attrs, "kind", e.ErrorKind)...)
			case e.Type == domain.EventSessionStarted, e.Type == domain.EventSessionEnded:
				logger.InfoContext(ctx, string(e.Type), attrs...)
			default:
				logger.DebugContext(ctx, string(e.Type), attrs...)
			}
		},
		OnDecision: func(ctx context.Context, e domain.DecisionEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"game_type", e.GameType,
				"player_id", e.PlayerID,
				"provider", e.Provider,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "decision failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.DebugContext(ctx, "decision", attrs...)
		},
	}
}
