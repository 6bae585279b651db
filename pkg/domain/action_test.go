package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecision_ClampsConfidence(t *testing.T) {
	a := NewAction("p1", "cooperate", nil)

	assert.Equal(t, 1.0, NewDecision(a, "", 1.7).Confidence())
	assert.Equal(t, 0.0, NewDecision(a, "", -0.2).Confidence())
	assert.Equal(t, 0.0, NewDecision(a, "", math.NaN()).Confidence())
	assert.Equal(t, 0.4, NewDecision(a, "", 0.4).Confidence())
}

func TestAIDecision_ActionIsCopied(t *testing.T) {
	payload := map[string]any{"quantity": 3}
	d := NewDecision(NewAction("p1", "bid", payload), "three of a kind", 0.5)

	payload["quantity"] = 9
	got := d.Action()
	got.Payload["quantity"] = 7

	assert.Equal(t, 3, d.Action().Payload["quantity"])
	assert.Equal(t, "three of a kind", d.Reasoning())
}

func TestPlayerAction_WithConfidence(t *testing.T) {
	a := NewAction("p1", "defect", nil).WithReasoning("tit for tat").WithConfidence(2)

	require.NotNil(t, a.Confidence)
	assert.Equal(t, 1.0, *a.Confidence)
	assert.Equal(t, "tit for tat", a.Reasoning)
	assert.False(t, a.Timestamp.IsZero())
}
