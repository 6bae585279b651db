// Package http exposes the engine over a JSON REST API with live session
// updates via Server-Sent Events and WebSockets.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines the operations the HTTP server drives.
type Engine interface {
	CreateSession(ctx context.Context, gameType domain.GameType, override domain.GameConfig) (domain.Snapshot, error)
	StartSession(ctx context.Context, sessionID string, players []domain.Player) (domain.Snapshot, error)
	SubmitAction(ctx context.Context, sessionID string, action domain.PlayerAction) (domain.Snapshot, error)
	Advance(ctx context.Context, sessionID string) (genius.TurnOutcome, error)
	GetState(ctx context.Context, sessionID string) (domain.Snapshot, error)
	Subscribe(ctx context.Context, sessionID string) (<-chan *domain.SnapshotDiff, func(), error)
	Remove(ctx context.Context, sessionID string) error
	List() []genius.Summary
	Games() []games.Definition
	Providers() []string
	Results(ctx context.Context, gameType domain.GameType, limit int) ([]domain.GameResult, error)
}

// Server serves the REST API.
type Server struct {
	engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	ping     time.Duration
	origins  []string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithPingInterval sets how often idle event streams get a keep-alive.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.ping = d
		}
	}
}

// WithOriginPatterns lets WebSocket clients from other origins connect.
// Patterns match the origin host, e.g. "*.example.com". Same-origin clients
// are always accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, patterns...)
	}
}

// NewServer creates a Server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		ping:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/games", s.ListGames)
	r.Get("/results", s.ListResults)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetState)
			r.Delete("/", s.RemoveSession)
			r.Post("/start", s.StartSession)
			r.Post("/actions", s.SubmitAction)
			r.Post("/advance", s.Advance)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/ws", s.ServeWebSocket)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRequest is the body of POST /sessions. Durations are Go duration
// strings such as "30s".
type CreateRequest struct {
	GameType      domain.GameType      `json:"game_type"`
	TurnTimeout   string               `json:"turn_timeout,omitempty"`
	GracePeriod   string               `json:"grace_period,omitempty"`
	MinPlayers    int                  `json:"min_players,omitempty"`
	MaxPlayers    int                  `json:"max_players,omitempty"`
	MaxRounds     int                  `json:"max_rounds,omitempty"`
	TimeoutPolicy domain.TimeoutPolicy `json:"timeout_policy,omitempty"`
	Rules         map[string]string    `json:"rules,omitempty"`
}

// Config converts the request into a configuration override.
func (c CreateRequest) Config() (domain.GameConfig, error) {
	cfg := domain.GameConfig{
		MinPlayers:    c.MinPlayers,
		MaxPlayers:    c.MaxPlayers,
		MaxRounds:     c.MaxRounds,
		TimeoutPolicy: c.TimeoutPolicy,
		Rules:         c.Rules,
	}
	var err error
	if c.TurnTimeout != "" {
		if cfg.TurnTimeout, err = time.ParseDuration(c.TurnTimeout); err != nil {
			return cfg, domain.ConfigError("turn_timeout: %v", err)
		}
	}
	if c.GracePeriod != "" {
		if cfg.GracePeriod, err = time.ParseDuration(c.GracePeriod); err != nil {
			return cfg, domain.ConfigError("grace_period: %v", err)
		}
	}
	return cfg, nil
}

// StartRequest is the body of POST /sessions/{id}/start.
type StartRequest struct {
	Players []domain.Player `json:"players"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if !s.decode(w, r, &body) {
		return
	}
	cfg, err := body.Config()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.engine.CreateSession(r.Context(), body.GameType, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+snap.SessionID)
	s.respond(w, http.StatusCreated, snap)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.engine.List())
}

// GetState handles GET /sessions/{id}.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

// RemoveSession handles DELETE /sessions/{id}.
func (s *Server) RemoveSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartSession handles POST /sessions/{id}/start.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if !s.decode(w, r, &body) {
		return
	}
	snap, err := s.engine.StartSession(r.Context(), chi.URLParam(r, "id"), body.Players)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

// SubmitAction handles POST /sessions/{id}/actions.
func (s *Server) SubmitAction(w http.ResponseWriter, r *http.Request) {
	var action domain.PlayerAction
	if !s.decode(w, r, &action) {
		return
	}
	snap, err := s.engine.SubmitAction(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

// AdvanceResponse is the body returned by POST /sessions/{id}/advance.
type AdvanceResponse struct {
	genius.TurnOutcome
	Error *ErrorResponse `json:"error,omitempty"`
}

// Advance handles POST /sessions/{id}/advance. A turn resolved by the
// timeout policy still answers 200 and reports the cause in "error".
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := AdvanceResponse{TurnOutcome: out}
	if out.Err != nil {
		resp.Error = &ErrorResponse{Kind: domain.KindOf(out.Err), Message: out.Err.Error()}
	}
	s.respond(w, http.StatusOK, resp)
}

// ListGames handles GET /games?category=.
func (s *Server) ListGames(w http.ResponseWriter, r *http.Request) {
	defs := s.engine.Games()
	if cat := r.URL.Query().Get("category"); cat != "" {
		filtered := defs[:0:0]
		for _, d := range defs {
			if string(d.Category) == cat {
				filtered = append(filtered, d)
			}
		}
		defs = filtered
	}
	s.respond(w, http.StatusOK, defs)
}

// ListResults handles GET /results?game_type=&limit=.
func (s *Server) ListResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, domain.ConfigError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	results, err := s.engine.Results(r.Context(), domain.GameType(q.Get("game_type")), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, results)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"app":       "genius-http",
		"version":   strings.TrimSpace(genius.Version),
		"providers": s.engine.Providers(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		s.respond(w, http.StatusBadRequest, ErrorResponse{
			Kind:    domain.KindSerializationError,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.respond(w, status, ErrorResponse{Kind: domain.KindOf(err), Message: err.Error()})
}

// StatusOf maps an engine error to an HTTP status code.
func StatusOf(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.KindOf(err) {
	case domain.KindGameNotFound, domain.KindPlayerNotFound:
		return http.StatusNotFound
	case domain.KindInvalidAction, domain.KindConfigError, domain.KindMinPlayersNotMet, domain.KindMaxPlayersReached:
		return http.StatusUnprocessableEntity
	case domain.KindGameAlreadyStarted, domain.KindGameNotStarted, domain.KindGameAlreadyEnded, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindTurnTimeout:
		return http.StatusRequestTimeout
	case domain.KindAIProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
