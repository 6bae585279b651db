// Package config loads server settings from the environment and per-game
// settings from a YAML or JSON file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings of the genius server.
type Config struct {
	Addr      string `env:"GENIUS_ADDR" envDefault:":8080"`
	LogLevel  string `env:"GENIUS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GENIUS_LOG_FORMAT" envDefault:"auto"`
	// WSOrigins are origin host patterns allowed to open WebSocket streams
	// besides the server's own.
	WSOrigins []string `env:"GENIUS_WS_ORIGINS" envSeparator:","`

	RedisAddr     string `env:"GENIUS_REDIS_ADDR"`
	RedisPassword string `env:"GENIUS_REDIS_PASSWORD"`
	RedisDB       int    `env:"GENIUS_REDIS_DB" envDefault:"0"`
	SQLitePath    string `env:"GENIUS_SQLITE_PATH"`
	DataDir       string `env:"GENIUS_DATA_DIR"`

	// EncryptionKey is a base64 AES-256 key sealing stored snapshots.
	EncryptionKey          string   `env:"GENIUS_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `env:"GENIUS_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`
	// PIIKeys are patterns of player metadata keys masked before storage.
	PIIKeys []string `env:"GENIUS_PII_KEYS" envSeparator:","`

	SnapshotTTL   time.Duration `env:"GENIUS_SNAPSHOT_TTL" envDefault:"24h"`
	LockTTL       time.Duration `env:"GENIUS_LOCK_TTL" envDefault:"2m"`
	Retention     time.Duration `env:"GENIUS_RETENTION" envDefault:"10m"`
	SweepInterval time.Duration `env:"GENIUS_SWEEP_INTERVAL" envDefault:"1s"`

	GamesFile string `env:"GENIUS_GAMES_FILE"`
	// BotsFile declares external programs that play as AI providers.
	BotsFile string `env:"GENIUS_BOTS_FILE"`

	OllamaEndpoint string `env:"GENIUS_OLLAMA_ENDPOINT"`
	OllamaModel    string `env:"GENIUS_OLLAMA_MODEL"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Store names the snapshot backend selected by the configuration.
func (c Config) Store() string {
	switch {
	case c.RedisAddr != "":
		return "redis"
	case c.SQLitePath != "":
		return "sqlite"
	case c.DataDir != "":
		return "file"
	default:
		return "memory"
	}
}
