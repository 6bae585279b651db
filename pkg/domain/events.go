package domain

import (
	"context"
	"time"
)

// EventType categorises session events.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionStarted   EventType = "session_started"
	EventActionApplied    EventType = "action_applied"
	EventActionRejected   EventType = "action_rejected"
	EventTurnTimeout      EventType = "turn_timeout"
	EventProviderError    EventType = "provider_error"
	EventTurnForfeited    EventType = "turn_forfeited"
	EventPlayerEliminated EventType = "player_eliminated"
	EventInvalidState     EventType = "invalid_state"
	EventSessionEnded     EventType = "session_ended"
)

// Event is an entry of a session's event log. Timeouts and provider failures
// are always recorded here, even when the timeout policy recovers from them.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id,omitempty"`
	Turn      int       `json:"turn"`
	Action    string    `json:"action,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	ErrorKind Kind      `json:"error_kind,omitempty"`
}

// DecisionEvent describes one completed call to a decision source.
type DecisionEvent struct {
	SessionID string
	GameType  GameType
	PlayerID  string
	Provider  string
	Duration  time.Duration
	Err       error
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously after the session lock is released.
type LifecycleHooks struct {
	OnEvent    func(context.Context, Event)
	OnDecision func(context.Context, DecisionEvent)
}

// ComposeHooks fans every callback out to all given hooks in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEvent: func(ctx context.Context, e Event) {
			for _, h := range hooks {
				if h.OnEvent != nil {
					h.OnEvent(ctx, e)
				}
			}
		},
		OnDecision: func(ctx context.Context, e DecisionEvent) {
			for _, h := range hooks {
				if h.OnDecision != nil {
					h.OnDecision(ctx, e)
				}
			}
		},
	}
}
