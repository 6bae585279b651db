package runtime

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/memory"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/provider"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/events"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/registry"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/2lab-ai/2hal9-demo-sub001/internal/runtime"

// DefaultProvider is bound to AI players that name no provider.
const DefaultProvider = "mock"

// Engine owns the live sessions and drives their turns.
type Engine struct {
	catalog   *games.Catalog
	providers *registry.Registry[ports.AIProvider]
	configs   map[domain.GameType]domain.GameConfig
	manager   *session.Manager
	broker    *events.Broker
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer
	newID     func() string
	now       func() time.Time
	retention time.Duration

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithCatalog replaces the built-in game catalog.
func WithCatalog(c *games.Catalog) EngineOption {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithProvider registers p under its name. A provider named like an
// existing one replaces it.
func WithProvider(p ports.AIProvider) EngineOption {
	return func(e *Engine) {
		e.providers.Register(p.Name(), p)
	}
}

// WithGameConfigs sets per-game-type overrides applied on top of the
// catalog defaults and below per-request settings.
func WithGameConfigs(configs map[domain.GameType]domain.GameConfig) EngineOption {
	return func(e *Engine) {
		for t, cfg := range configs {
			e.configs[t] = cfg
		}
	}
}

// WithStore persists snapshots to store.
func WithStore(store ports.SnapshotStore, opts ...session.ManagerOption) EngineOption {
	return func(e *Engine) {
		e.manager = session.NewManager(store, opts...)
	}
}

// WithManager injects a preconfigured session manager.
func WithManager(m *session.Manager) EngineOption {
	return func(e *Engine) {
		e.manager = m
	}
}

// WithBroker shares a diff broker with other components.
func WithBroker(b *events.Broker) EngineOption {
	return func(e *Engine) {
		e.broker = b
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracerProvider sets where decision spans go. Defaults to the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithClock replaces the time source of the engine and its sessions.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRetention sets how long ended sessions stay in memory. After that
// they are served from the store. Zero keeps them until removed.
func WithRetention(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.retention = d
	}
}

// NewEngine creates an engine with the built-in games, the deterministic mock
// provider and an in-memory store, each replaceable through options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:   games.DefaultCatalog(),
		providers: registry.New[ports.AIProvider](),
		configs:   make(map[domain.GameType]domain.GameConfig),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		newID:     uuid.NewString,
		now:       time.Now,
		sessions:  make(map[string]*session.Session),
	}
	e.providers.Register(DefaultProvider, provider.NewMock())

	for _, opt := range opts {
		opt(e)
	}

	if e.manager == nil {
		e.manager = session.NewManager(memory.NewStore(), session.WithLogger(e.logger))
	}
	if e.broker == nil {
		e.broker = events.NewBroker(events.WithLogger(e.logger))
	}
	return e
}

// Summary is the list view of a session.
type Summary struct {
	SessionID string          `json:"session_id"`
	GameType  domain.GameType `json:"game_type"`
	Status    domain.Status   `json:"status"`
	Players   int             `json:"players"`
	Turn      int             `json:"turn"`
	TurnOwner string          `json:"turn_owner,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSession creates a NotStarted session of gameType. override is merged
// over the catalog defaults and the configured per-type settings.
func (e *Engine) CreateSession(ctx context.Context, gameType domain.GameType, override domain.GameConfig) (domain.Snapshot, error) {
	def, ok := e.catalog.Lookup(gameType)
	if !ok {
		return domain.Snapshot{}, domain.ConfigError("unknown game type %q", gameType)
	}

	override.GameType = ""
	cfg := def.Defaults.Merge(e.configs[gameType]).Merge(override).WithDefaults()
	cfg.GameType = gameType
	if err := cfg.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	rules, err := e.catalog.Rules(gameType, cfg)
	if err != nil {
		return domain.Snapshot{}, err
	}

	sess := session.New(e.newID(), cfg, rules, session.WithClock(e.now))
	snap := sess.Snapshot()
	if err := e.manager.Save(ctx, &snap); err != nil {
		return domain.Snapshot{}, err
	}

	e.mu.Lock()
	e.sessions[sess.ID()] = sess
	e.mu.Unlock()

	e.logger.Info("session created", "session_id", sess.ID(), "game_type", gameType)
	e.emit(ctx, nil, &snap)
	return snap, nil
}

// StartSession seats players and starts the session. AI players are bound
// to the provider they name, or to DefaultProvider.
func (e *Engine) StartSession(ctx context.Context, sessionID string, players []domain.Player) (domain.Snapshot, error) {
	sess, err := e.live(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	switch sess.Status() {
	case domain.StatusInProgress:
		return sess.Snapshot(), domain.GameAlreadyStarted()
	case domain.StatusEnded:
		return sess.Snapshot(), domain.GameAlreadyEnded()
	}

	seats := make([]session.Seat, 0, len(players))
	for _, p := range players {
		seat, err := e.seat(p)
		if err != nil {
			return domain.Snapshot{}, err
		}
		seats = append(seats, seat)
	}

	snap, err := e.mutate(ctx, sess, func() error {
		return sess.Start(seats)
	})
	if err == nil {
		e.logger.Info("session started", "session_id", sessionID, "game_type", snap.GameType, "players", len(seats))
	}
	return snap, err
}

// SubmitAction applies an externally submitted action. Only human seats
// submit; AI seats act through Advance.
func (e *Engine) SubmitAction(ctx context.Context, sessionID string, action domain.PlayerAction) (domain.Snapshot, error) {
	sess, err := e.live(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := inProgress(sess); err != nil {
		return sess.Snapshot(), err
	}
	action, err = domain.SanitizeAction(action)
	if err != nil {
		e.rejected(ctx, sess, action, err)
		return sess.Snapshot(), err
	}
	if seat, ok := sess.Seat(action.PlayerID); ok && !seat.Source.IsHuman() {
		err := domain.InvalidAction("player %s is driven by %s", action.PlayerID, seat.Source.Label())
		e.rejected(ctx, sess, action, err)
		return sess.Snapshot(), err
	}

	snap, err := e.mutate(ctx, sess, func() error {
		return sess.ApplyAction(action)
	})
	if domain.KindOf(err) == domain.KindInvalidAction {
		e.rejected(ctx, sess, action, err)
	}
	return snap, err
}

// GetState returns the current snapshot. Sessions no longer in memory are
// served from the store.
func (e *Engine) GetState(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	if sess, ok := e.lookup(sessionID); ok {
		return sess.Snapshot(), nil
	}
	snap, err := e.manager.Load(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return *snap, nil
}

// Subscribe streams the diffs of a live session until cancel is called or
// the session is removed.
func (e *Engine) Subscribe(ctx context.Context, sessionID string) (<-chan *domain.SnapshotDiff, func(), error) {
	if _, err := e.live(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	ch, cancel := e.broker.Subscribe(sessionID)
	return ch, cancel, nil
}

// Remove tears a session down: it is dropped from memory and the store and
// its subscribers are closed.
func (e *Engine) Remove(ctx context.Context, sessionID string) error {
	_, live := e.lookup(sessionID)
	if !live {
		if _, err := e.manager.Load(ctx, sessionID); err != nil {
			return err
		}
	}

	if err := e.manager.Delete(ctx, sessionID); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	e.broker.CloseSession(sessionID)
	e.logger.Info("session removed", "session_id", sessionID)
	return nil
}

// List summarises the sessions held in memory, oldest first.
func (e *Engine) List() []Summary {
	e.mu.RLock()
	live := make([]*session.Session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		live = append(live, sess)
	}
	e.mu.RUnlock()

	out := make([]Summary, 0, len(live))
	for _, sess := range live {
		snap := sess.Snapshot()
		out = append(out, Summary{
			SessionID: snap.SessionID,
			GameType:  snap.GameType,
			Status:    snap.Status,
			Players:   len(snap.Players),
			Turn:      snap.Turn,
			TurnOwner: snap.TurnOwner,
			CreatedAt: snap.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.SessionID, b.SessionID)
	})
	return out
}

// Games lists the playable game types.
func (e *Engine) Games() []games.Definition {
	return e.catalog.List()
}

// Providers lists the registered AI provider names.
func (e *Engine) Providers() []string {
	return e.providers.Names()
}

// Results returns archived results when the store keeps them.
func (e *Engine) Results(ctx context.Context, gameType domain.GameType, limit int) ([]domain.GameResult, error) {
	archive, ok := e.manager.Store().(ports.ResultArchive)
	if !ok {
		return nil, domain.ConfigError("the configured store does not archive results")
	}
	return archive.Results(ctx, gameType, limit)
}

func (e *Engine) seat(p domain.Player) (session.Seat, error) {
	if p.IsHuman() {
		p.Source = domain.SourceHuman
		p.Provider = ""
		return session.Seat{Player: p, Source: ports.Human()}, nil
	}
	if p.Provider == "" {
		p.Provider = DefaultProvider
	}
	ai, ok := e.providers.Lookup(p.Provider)
	if !ok {
		return session.Seat{}, domain.ConfigError("unknown provider %q for player %s", p.Provider, p.ID)
	}
	return session.Seat{Player: p, Source: ports.AI(ai)}, nil
}

func (e *Engine) lookup(sessionID string) (*session.Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[sessionID]
	return sess, ok
}

// live returns the in-memory session. A session that only survives in the
// store has ended and been evicted, so mutating it is GameAlreadyEnded.
func (e *Engine) live(ctx context.Context, sessionID string) (*session.Session, error) {
	if sess, ok := e.lookup(sessionID); ok {
		return sess, nil
	}
	snap, err := e.manager.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.Status == domain.StatusEnded {
		return nil, domain.GameAlreadyEnded()
	}
	return nil, domain.GameNotFound(sessionID)
}

// mutate runs fn under the session lock and persists the result if anything
// changed. Hooks and subscribers are notified after the lock is released.
func (e *Engine) mutate(ctx context.Context, sess *session.Session, fn func() error) (domain.Snapshot, error) {
	var (
		before, after domain.Snapshot
		opErr         error
	)
	err := e.manager.WithLock(ctx, sess.ID(), func(ctx context.Context) error {
		before = sess.Snapshot()
		opErr = fn()
		after = sess.Snapshot()
		if len(after.Events) == len(before.Events) && after.UpdatedAt.Equal(before.UpdatedAt) {
			return nil
		}
		return e.manager.Persist(ctx, &after)
	})
	if err != nil {
		if after.SessionID == "" {
			return sess.Snapshot(), err
		}
		e.emit(ctx, &before, &after)
		return after, err
	}
	e.emit(ctx, &before, &after)
	return after, opErr
}

// emit reports the events appended between before and after and publishes
// the diff. A nil before reports everything.
func (e *Engine) emit(ctx context.Context, before, after *domain.Snapshot) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	if e.hooks.OnEvent != nil {
		for _, ev := range diff.Events {
			e.hooks.OnEvent(ctx, ev)
		}
	}
	if diff.Status != nil && *diff.Status == domain.StatusEnded && after.Result != nil {
		e.logger.Info("session ended",
			"session_id", after.SessionID,
			"game_type", after.GameType,
			"outcome", after.Result.Outcome,
			"winners", after.Result.Winners,
		)
	}
	e.broker.Publish(diff)
}

// rejected reports an action that never reached the session log.
func (e *Engine) rejected(ctx context.Context, sess *session.Session, action domain.PlayerAction, err error) {
	e.logger.Debug("action rejected", "session_id", sess.ID(), "player_id", action.PlayerID, "action", action.Type, "error", err)
	if e.hooks.OnEvent == nil {
		return
	}
	e.hooks.OnEvent(ctx, domain.Event{
		Timestamp: e.now(),
		Type:      domain.EventActionRejected,
		SessionID: sess.ID(),
		PlayerID:  action.PlayerID,
		Turn:      sess.Turn(),
		Action:    action.Type,
		Detail:    err.Error(),
		ErrorKind: domain.KindOf(err),
	})
}

func (e *Engine) evict(ids []string) {
	if len(ids) == 0 {
		return
	}
	e.mu.Lock()
	for _, id := range ids {
		delete(e.sessions, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.broker.CloseSession(id)
	}
}

func (e *Engine) snapshotLive() []*session.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*session.Session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		out = append(out, sess)
	}
	slices.SortFunc(out, func(a, b *session.Session) int {
		return a.CreatedAt().Compare(b.CreatedAt())
	})
	return out
}
