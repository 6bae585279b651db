package domain

import (
	"math"
	"time"
)

// PlayerAction is a move submitted for a player. Payload is interpreted only
// by the rule set.
type PlayerAction struct {
	PlayerID   string         `json:"player_id" mapstructure:"player_id"`
	Type       string         `json:"action_type" mapstructure:"action_type"`
	Payload    map[string]any `json:"payload,omitempty" mapstructure:"payload"`
	Reasoning  string         `json:"reasoning,omitempty" mapstructure:"reasoning"`
	Confidence *float64       `json:"confidence,omitempty" mapstructure:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAction creates an action stamped with the current time.
func NewAction(playerID, actionType string, payload map[string]any) PlayerAction {
	return PlayerAction{
		PlayerID:  playerID,
		Type:      actionType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithReasoning returns a copy of a carrying the explanation.
func (a PlayerAction) WithReasoning(reasoning string) PlayerAction {
	a.Reasoning = reasoning
	return a
}

// WithConfidence returns a copy of a carrying confidence clamped to [0,1].
func (a PlayerAction) WithConfidence(confidence float64) PlayerAction {
	c := clamp01(confidence)
	a.Confidence = &c
	return a
}

// Clone copies the payload map so the copy can be handed out safely.
func (a PlayerAction) Clone() PlayerAction {
	if a.Payload != nil {
		payload := make(map[string]any, len(a.Payload))
		for k, v := range a.Payload {
			payload[k] = v
		}
		a.Payload = payload
	}
	if a.Confidence != nil {
		c := *a.Confidence
		a.Confidence = &c
	}
	return a
}

// AIDecision is produced by an AI provider. Fields are unexported so a
// decision cannot be changed after creation.
type AIDecision struct {
	action     PlayerAction
	reasoning  string
	confidence float64
}

// NewDecision builds a decision; confidence is clamped to [0,1].
func NewDecision(action PlayerAction, reasoning string, confidence float64) AIDecision {
	return AIDecision{
		action:     action.Clone(),
		reasoning:  reasoning,
		confidence: clamp01(confidence),
	}
}

func (d AIDecision) Action() PlayerAction { return d.action.Clone() }
func (d AIDecision) Reasoning() string    { return d.reasoning }
func (d AIDecision) Confidence() float64  { return d.confidence }

// Capabilities describes what a provider supports.
type Capabilities struct {
	SupportsReasoning  bool `json:"supports_reasoning"`
	SupportsConfidence bool `json:"supports_confidence"`
	MaxContextLength   int  `json:"max_context_length"`
	SupportsStreaming  bool `json:"supports_streaming"`
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
