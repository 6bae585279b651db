package domain

import (
	"time"
)

// GameType tags the rule set a session is played with.
type GameType string

// Category groups game types in the catalog.
type Category string

const (
	CategoryStrategic  Category = "strategic"
	CategoryCollective Category = "collective"
	CategorySurvival   Category = "survival"
	CategoryTrust      Category = "trust"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusEnded      Status = "ended"
)

// TimeoutPolicy decides what happens when a turn owner fails to act in time
// or its provider fails.
type TimeoutPolicy string

const (
	PolicyForfeitTurn     TimeoutPolicy = "forfeit"
	PolicyEliminatePlayer TimeoutPolicy = "eliminate"
	PolicyAbortSession    TimeoutPolicy = "abort"
)

// Defaults applied when a game definition leaves a field empty.
const (
	DefaultTurnTimeout = 30 * time.Second
	DefaultGracePeriod = 5 * time.Second
	DefaultMinPlayers  = 2
	DefaultMaxPlayers  = 8
)

// GameConfig is the per-game-type configuration consumed by the engine.
type GameConfig struct {
	GameType      GameType          `json:"game_type" yaml:"game_type"`
	TurnTimeout   time.Duration     `json:"turn_timeout" yaml:"turn_timeout"`
	GracePeriod   time.Duration     `json:"grace_period" yaml:"grace_period"`
	MinPlayers    int               `json:"min_players" yaml:"min_players"`
	MaxPlayers    int               `json:"max_players" yaml:"max_players"`
	MaxRounds     int               `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty"`
	TimeoutPolicy TimeoutPolicy     `json:"timeout_policy,omitempty" yaml:"timeout_policy,omitempty"`
	Rules         map[string]string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Merge returns c with every non-zero field of override applied on top.
// Rule entries are merged key by key.
func (c GameConfig) Merge(override GameConfig) GameConfig {
	out := c
	if override.GameType != "" {
		out.GameType = override.GameType
	}
	if override.TurnTimeout > 0 {
		out.TurnTimeout = override.TurnTimeout
	}
	if override.GracePeriod > 0 {
		out.GracePeriod = override.GracePeriod
	}
	if override.MinPlayers > 0 {
		out.MinPlayers = override.MinPlayers
	}
	if override.MaxPlayers > 0 {
		out.MaxPlayers = override.MaxPlayers
	}
	if override.MaxRounds > 0 {
		out.MaxRounds = override.MaxRounds
	}
	if override.TimeoutPolicy != "" {
		out.TimeoutPolicy = override.TimeoutPolicy
	}
	if len(override.Rules) > 0 {
		rules := make(map[string]string, len(c.Rules)+len(override.Rules))
		for k, v := range c.Rules {
			rules[k] = v
		}
		for k, v := range override.Rules {
			rules[k] = v
		}
		out.Rules = rules
	}
	return out
}

// WithDefaults fills empty fields with the package defaults.
func (c GameConfig) WithDefaults() GameConfig {
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = DefaultMinPlayers
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = DefaultMaxPlayers
	}
	if c.TimeoutPolicy == "" {
		c.TimeoutPolicy = PolicyForfeitTurn
	}
	return c
}

// Validate reports a ConfigError for inconsistent settings.
func (c GameConfig) Validate() error {
	if c.GameType == "" {
		return ConfigError("game type is required")
	}
	if c.TurnTimeout <= 0 {
		return ConfigError("turn_timeout must be positive, got %s", c.TurnTimeout)
	}
	if c.GracePeriod < 0 {
		return ConfigError("grace_period must not be negative, got %s", c.GracePeriod)
	}
	if c.MinPlayers < 1 {
		return ConfigError("min_players must be at least 1, got %d", c.MinPlayers)
	}
	if c.MaxPlayers < c.MinPlayers {
		return ConfigError("max_players (%d) is lower than min_players (%d)", c.MaxPlayers, c.MinPlayers)
	}
	switch c.TimeoutPolicy {
	case PolicyForfeitTurn, PolicyEliminatePlayer, PolicyAbortSession:
	default:
		return ConfigError("unknown timeout_policy %q", c.TimeoutPolicy)
	}
	return nil
}

// Rule returns the named rule setting or fallback.
func (c GameConfig) Rule(name, fallback string) string {
	if v, ok := c.Rules[name]; ok && v != "" {
		return v
	}
	return fallback
}
