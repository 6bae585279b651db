package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameConfig_MergeOverridesNonZero(t *testing.T) {
	base := GameConfig{
		GameType:    "prisoners_dilemma",
		TurnTimeout: 10 * time.Second,
		MinPlayers:  2,
		MaxPlayers:  2,
		Rules:       map[string]string{"payoff": "classic", "noise": "0"},
	}
	override := GameConfig{
		TurnTimeout: 3 * time.Second,
		Rules:       map[string]string{"noise": "0.1"},
	}

	got := base.Merge(override)

	assert.Equal(t, GameType("prisoners_dilemma"), got.GameType)
	assert.Equal(t, 3*time.Second, got.TurnTimeout)
	assert.Equal(t, 2, got.MaxPlayers)
	assert.Equal(t, map[string]string{"payoff": "classic", "noise": "0.1"}, got.Rules)
	assert.Equal(t, "0", base.Rules["noise"], "merge must not mutate the receiver")
}

func TestGameConfig_WithDefaults(t *testing.T) {
	cfg := GameConfig{GameType: "x"}.WithDefaults()

	assert.Equal(t, DefaultTurnTimeout, cfg.TurnTimeout)
	assert.Equal(t, DefaultGracePeriod, cfg.GracePeriod)
	assert.Equal(t, DefaultMinPlayers, cfg.MinPlayers)
	assert.Equal(t, DefaultMaxPlayers, cfg.MaxPlayers)
	assert.Equal(t, PolicyForfeitTurn, cfg.TimeoutPolicy)
	require.NoError(t, cfg.Validate())
}

func TestGameConfig_Validate(t *testing.T) {
	valid := GameConfig{GameType: "x"}.WithDefaults()

	tests := []struct {
		name   string
		mutate func(*GameConfig)
	}{
		{"missing type", func(c *GameConfig) { c.GameType = "" }},
		{"zero timeout", func(c *GameConfig) { c.TurnTimeout = 0 }},
		{"negative grace", func(c *GameConfig) { c.GracePeriod = -time.Second }},
		{"min below one", func(c *GameConfig) { c.MinPlayers = 0 }},
		{"max below min", func(c *GameConfig) { c.MinPlayers, c.MaxPlayers = 4, 3 }},
		{"unknown policy", func(c *GameConfig) { c.TimeoutPolicy = "retry" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestGameConfig_Rule(t *testing.T) {
	cfg := GameConfig{Rules: map[string]string{"dice": "5", "empty": ""}}

	assert.Equal(t, "5", cfg.Rule("dice", "3"))
	assert.Equal(t, "3", cfg.Rule("empty", "3"))
	assert.Equal(t, "x", cfg.Rule("missing", "x"))
}
