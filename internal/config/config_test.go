package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.Retention)
	assert.Equal(t, "memory", cfg.Store())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("GENIUS_ADDR", ":9090")
	t.Setenv("GENIUS_SQLITE_PATH", "/tmp/genius.db")
	t.Setenv("GENIUS_SWEEP_INTERVAL", "250ms")
	t.Setenv("GENIUS_REDIS_DB", "3")
	t.Setenv("GENIUS_WS_ORIGINS", "app.example.com,*.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"app.example.com", "*.example.org"}, cfg.WSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "sqlite", cfg.Store())

	t.Setenv("GENIUS_REDIS_ADDR", "localhost:6379")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store())
}

func TestLoad_StorageSecurity(t *testing.T) {
	t.Setenv("GENIUS_DATA_DIR", "/var/lib/genius")
	t.Setenv("GENIUS_ENCRYPTION_KEY", "a2V5")
	t.Setenv("GENIUS_ENCRYPTION_FALLBACK_KEYS", "b2xk,b2xkZXI=")
	t.Setenv("GENIUS_PII_KEYS", "email,phone")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Store())
	assert.Equal(t, "a2V5", cfg.EncryptionKey)
	assert.Equal(t, []string{"b2xk", "b2xkZXI="}, cfg.EncryptionFallbackKeys)
	assert.Equal(t, []string{"email", "phone"}, cfg.PIIKeys)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("GENIUS_RETENTION", "forever")

	_, err := Load()
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGames_YAML(t *testing.T) {
	path := writeFile(t, "games.yaml", `
games:
  - game_type: prisoners_dilemma
    turn_timeout: 20s
    grace_period: 2s
    max_rounds: 5
    timeout_policy: eliminate
  - game_type: liars_dice
    rules:
      dice: "3"
`)
	games, err := LoadGames(path)
	require.NoError(t, err)
	require.Len(t, games, 2)

	pd := games["prisoners_dilemma"]
	assert.Equal(t, 20*time.Second, pd.TurnTimeout)
	assert.Equal(t, 2*time.Second, pd.GracePeriod)
	assert.Equal(t, 5, pd.MaxRounds)
	assert.Equal(t, domain.PolicyEliminatePlayer, pd.TimeoutPolicy)
	assert.Zero(t, pd.MinPlayers, "unset fields keep catalog defaults")

	assert.Equal(t, "3", games["liars_dice"].Rules["dice"])
}

func TestLoadGames_JSON(t *testing.T) {
	path := writeFile(t, "games.json", `{"games":[{"game_type":"minority_game","turn_timeout":"1m","max_players":9}]}`)

	games, err := LoadGames(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, games["minority_game"].TurnTimeout)
	assert.Equal(t, 9, games["minority_game"].MaxPlayers)
}

func TestLoadGames_EmptyPath(t *testing.T) {
	games, err := LoadGames("")
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestLoadGames_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "games: [\n"},
		{"missing type", "games:\n  - turn_timeout: 1s\n"},
		{"bad duration", "games:\n  - game_type: x\n    turn_timeout: soon\n"},
		{"negative grace", "games:\n  - game_type: x\n    grace_period: -1s\n"},
		{"bad policy", "games:\n  - game_type: x\n    timeout_policy: retry\n"},
		{"inverted players", "games:\n  - game_type: x\n    min_players: 4\n    max_players: 2\n"},
		{"duplicate", "games:\n  - game_type: x\n  - game_type: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGames(writeFile(t, "games.yaml", tt.content))
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}

	_, err := LoadGames(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}
