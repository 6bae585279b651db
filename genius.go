package genius

import (
	"log/slog"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/runtime"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/observability"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

type (
	// TurnOutcome reports what one Advance did.
	TurnOutcome = runtime.TurnOutcome
	// Summary is the list view of a session.
	Summary = runtime.Summary
)

// Engine is the high-level entry point of the library. It wraps the internal
// runtime with the default stack: structured logging, optional metrics and
// an in-memory store unless another one is configured.
type Engine struct {
	*runtime.Engine

	metrics *observability.Metrics
}

type config struct {
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	store     ports.SnapshotStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	providers []ports.AIProvider
	catalog   *games.Catalog
	configs   map[domain.GameType]domain.GameConfig
	retention time.Duration
	registry  prometheus.Registerer
	tracer    trace.TracerProvider
	idGen     func() string
	clock     func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*config)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. They run alongside the
// built-in logging and metrics hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithStore persists snapshots to store instead of memory.
func WithStore(store ports.SnapshotStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithLocker serializes sessions across processes sharing the store.
// ttl bounds how long a crashed holder keeps the lock; it should exceed the
// longest turn timeout.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *config) {
		c.locker = locker
		c.lockTTL = ttl
	}
}

// WithProvider registers an AI provider under its name.
func WithProvider(p ports.AIProvider) Option {
	return func(c *config) {
		c.providers = append(c.providers, p)
	}
}

// WithCatalog replaces the built-in games.
func WithCatalog(catalog *games.Catalog) Option {
	return func(c *config) {
		c.catalog = catalog
	}
}

// WithGameConfigs sets per-game-type settings, e.g. loaded from a file.
func WithGameConfigs(configs map[domain.GameType]domain.GameConfig) Option {
	return func(c *config) {
		c.configs = configs
	}
}

// WithRetention keeps ended sessions in memory for d before serving them
// from the store only.
func WithRetention(d time.Duration) Option {
	return func(c *config) {
		c.retention = d
	}
}

// WithMetrics registers Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithTracerProvider sets where decision spans are exported.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracer = tp
	}
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		c.idGen = fn
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.clock = now
	}
}

// New initializes a new Engine.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	for t := range cfg.configs {
		if _, ok := gameCatalog(cfg).Lookup(t); !ok {
			return nil, domain.ConfigError("settings given for unknown game type %q", t)
		}
	}
	if cfg.locker != nil && cfg.store == nil {
		return nil, domain.ConfigError("a distributed locker needs a shared store")
	}
	if cfg.locker != nil {
		if err := checkLockTTL(cfg); err != nil {
			return nil, err
		}
	}

	eng := &Engine{}
	hooks := []domain.LifecycleHooks{observability.LogHooks(cfg.logger)}
	if cfg.registry != nil {
		eng.metrics = observability.NewMetrics(cfg.registry)
		hooks = append(hooks, eng.metrics.Hooks())
	}
	hooks = append(hooks, cfg.hooks)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(cfg.logger),
		runtime.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
		runtime.WithCatalog(gameCatalog(cfg)),
		runtime.WithGameConfigs(cfg.configs),
		runtime.WithRetention(cfg.retention),
	}
	if cfg.store != nil {
		managerOpts := []session.ManagerOption{session.WithLogger(cfg.logger)}
		if cfg.locker != nil {
			managerOpts = append(managerOpts, session.WithLocker(cfg.locker), session.WithLockTTL(cfg.lockTTL))
		}
		runtimeOpts = append(runtimeOpts, runtime.WithStore(cfg.store, managerOpts...))
	}
	for _, p := range cfg.providers {
		runtimeOpts = append(runtimeOpts, runtime.WithProvider(p))
	}
	if cfg.tracer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTracerProvider(cfg.tracer))
	}
	if cfg.idGen != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithIDGenerator(cfg.idGen))
	}
	if cfg.clock != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithClock(cfg.clock))
	}

	eng.Engine = runtime.NewEngine(runtimeOpts...)
	return eng, nil
}

// Metrics returns the Prometheus collectors, nil unless WithMetrics was given.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

func gameCatalog(c *config) *games.Catalog {
	if c.catalog == nil {
		c.catalog = games.DefaultCatalog()
	}
	return c.catalog
}

// checkLockTTL makes sure a distributed lock outlives every configured turn,
// since an AI decision runs with the lock held.
func checkLockTTL(c *config) error {
	ttl := c.lockTTL
	if ttl <= 0 {
		ttl = session.DefaultLockTTL
	}
	for _, def := range gameCatalog(c).List() {
		timeout := def.Defaults.Merge(c.configs[def.Type]).WithDefaults().TurnTimeout
		if ttl <= timeout {
			return domain.ConfigError("lock ttl %s must exceed the %s turn timeout of %s", ttl, timeout, def.Type)
		}
	}
	return nil
}
