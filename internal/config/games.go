package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"gopkg.in/yaml.v3"
)

// GameEntry is one game type in the games file. Durations are Go duration
// strings such as "30s".
type GameEntry struct {
	GameType      string            `yaml:"game_type" json:"game_type"`
	TurnTimeout   string            `yaml:"turn_timeout" json:"turn_timeout"`
	GracePeriod   string            `yaml:"grace_period" json:"grace_period"`
	MinPlayers    int               `yaml:"min_players" json:"min_players"`
	MaxPlayers    int               `yaml:"max_players" json:"max_players"`
	MaxRounds     int               `yaml:"max_rounds" json:"max_rounds"`
	TimeoutPolicy string            `yaml:"timeout_policy" json:"timeout_policy"`
	Rules         map[string]string `yaml:"rules" json:"rules"`
}

// GamesFile represents the structure of games.yaml.
type GamesFile struct {
	Games []GameEntry `yaml:"games" json:"games"`
}

// LoadGames reads a games file (YAML or JSON) and returns the settings per
// game type. An empty path yields no settings.
func LoadGames(path string) (map[domain.GameType]domain.GameConfig, error) {
	if path == "" {
		return map[domain.GameType]domain.GameConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigError("read games file: %v", err)
	}

	var file GamesFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, domain.ConfigError("parse %s: %v", filepath.Base(path), err)
	}
	return ParseGames(file)
}

// ParseGames converts and validates the entries of a games file.
func ParseGames(file GamesFile) (map[domain.GameType]domain.GameConfig, error) {
	out := make(map[domain.GameType]domain.GameConfig, len(file.Games))
	for i, entry := range file.Games {
		cfg, err := entry.Config()
		if err != nil {
			return nil, fmt.Errorf("games[%d]: %w", i, err)
		}
		if _, dup := out[cfg.GameType]; dup {
			return nil, domain.ConfigError("game type %q is configured twice", cfg.GameType)
		}
		out[cfg.GameType] = cfg
	}
	return out, nil
}

// Config converts the entry. Unset fields stay zero so that catalog
// defaults still apply when the entry is merged.
func (e GameEntry) Config() (domain.GameConfig, error) {
	if e.GameType == "" {
		return domain.GameConfig{}, domain.ConfigError("game_type is required")
	}
	cfg := domain.GameConfig{
		GameType:      domain.GameType(e.GameType),
		MinPlayers:    e.MinPlayers,
		MaxPlayers:    e.MaxPlayers,
		MaxRounds:     e.MaxRounds,
		TimeoutPolicy: domain.TimeoutPolicy(e.TimeoutPolicy),
		Rules:         e.Rules,
	}
	var err error
	if cfg.TurnTimeout, err = duration("turn_timeout", e.TurnTimeout); err != nil {
		return cfg, err
	}
	if cfg.GracePeriod, err = duration("grace_period", e.GracePeriod); err != nil {
		return cfg, err
	}
	if e.MinPlayers < 0 || e.MaxPlayers < 0 || e.MaxRounds < 0 {
		return cfg, domain.ConfigError("%s: player and round counts must not be negative", e.GameType)
	}
	if e.MinPlayers > 0 && e.MaxPlayers > 0 && e.MaxPlayers < e.MinPlayers {
		return cfg, domain.ConfigError("%s: max_players (%d) is lower than min_players (%d)", e.GameType, e.MaxPlayers, e.MinPlayers)
	}
	switch cfg.TimeoutPolicy {
	case "", domain.PolicyForfeitTurn, domain.PolicyEliminatePlayer, domain.PolicyAbortSession:
	default:
		return cfg, domain.ConfigError("%s: unknown timeout_policy %q", e.GameType, e.TimeoutPolicy)
	}
	return cfg, nil
}

func duration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, domain.ConfigError("%s: %v", field, err)
	}
	if d < 0 {
		return 0, domain.ConfigError("%s must not be negative, got %s", field, d)
	}
	return d, nil
}
