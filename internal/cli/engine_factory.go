// Package cli wires the genius engine from configuration for the command
// line tools.
package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/config"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/file"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/memory"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/ollama"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/process"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/redis"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/sqlite"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/persistence/middleware"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stack is an engine with the infrastructure it was built on.
type Stack struct {
	Engine   *genius.Engine
	Registry *prometheus.Registry
	Store    string

	closers []func() error
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Build creates an engine following cfg: the snapshot store (Redis with a
// distributed lock, SQLite, a data directory or memory) with its
// encryption and masking middleware, per-game settings, the bot and Ollama
// providers and Prometheus metrics.
func Build(cfg config.Config, logger *slog.Logger, extra ...genius.Option) (*Stack, error) {
	stack := &Stack{
		Registry: prometheus.NewRegistry(),
		Store:    cfg.Store(),
	}
	stack.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gameConfigs, err := config.LoadGames(cfg.GamesFile)
	if err != nil {
		return nil, err
	}

	opts := []genius.Option{
		genius.WithLogger(logger),
		genius.WithMetrics(stack.Registry),
		genius.WithGameConfigs(gameConfigs),
		genius.WithRetention(cfg.Retention),
	}

	bots, err := process.LoadBots(cfg.BotsFile)
	if err != nil {
		return nil, err
	}
	for _, bot := range bots {
		opts = append(opts, genius.WithProvider(process.New(bot, process.WithBaseDir(filepath.Dir(cfg.BotsFile)))))
	}

	mws, err := persistence(cfg)
	if err != nil {
		return nil, err
	}

	var store ports.SnapshotStore
	switch stack.Store {
	case "redis":
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SnapshotTTL))
		stack.closers = append(stack.closers, rs.Close)
		store = rs
		opts = append(opts, genius.WithLocker(redis.NewLocker(rs.Client(), "genius:"), cfg.LockTTL))
	case "sqlite":
		ss, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		stack.closers = append(stack.closers, ss.Close)
		store = ss
	case "file":
		store = file.New(cfg.DataDir)
	default:
		if len(mws) > 0 {
			store = memory.NewStore()
		}
	}
	if store != nil {
		opts = append(opts, genius.WithStore(middleware.Chain(store, mws...)))
	}

	if cfg.OllamaEndpoint != "" || cfg.OllamaModel != "" {
		opts = append(opts, genius.WithProvider(ollama.New(ollama.Config{
			Endpoint: cfg.OllamaEndpoint,
			Model:    cfg.OllamaModel,
		})))
	}

	eng, err := genius.New(append(opts, extra...)...)
	if err != nil {
		stack.Close()
		return nil, err
	}
	stack.Engine = eng

	logger.Debug("engine ready", "store", stack.Store, "middleware", len(mws), "games_file", cfg.GamesFile, "providers", eng.Providers())
	return stack, nil
}

// persistence builds the store middleware: PII masking runs first so the
// encrypted payload is already masked.
func persistence(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.PIIKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PIIKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey == "" {
		if len(cfg.EncryptionFallbackKeys) > 0 {
			return nil, domain.ConfigError("fallback encryption keys need an active key")
		}
		return mws, nil
	}

	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.EncryptionFallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	sealed, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return append(mws, sealed), nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, domain.ConfigError("encryption key is not valid base64: %v", err)
	}
	return key, nil
}
