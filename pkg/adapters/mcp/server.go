// Package mcp exposes the engine as Model Context Protocol tools so that
// agents can create, join and play sessions.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine defines the operations exposed as tools.
type Engine interface {
	CreateSession(ctx context.Context, gameType domain.GameType, override domain.GameConfig) (domain.Snapshot, error)
	StartSession(ctx context.Context, sessionID string, players []domain.Player) (domain.Snapshot, error)
	SubmitAction(ctx context.Context, sessionID string, action domain.PlayerAction) (domain.Snapshot, error)
	Advance(ctx context.Context, sessionID string) (genius.TurnOutcome, error)
	GetState(ctx context.Context, sessionID string) (domain.Snapshot, error)
	List() []genius.Summary
	Games() []games.Definition
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("genius-mcp", strings.TrimSpace(genius.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// SessionView is the structured result of the session tools.
type SessionView struct {
	SessionID    string             `json:"session_id" jsonschema_description:"Session identifier"`
	GameType     domain.GameType    `json:"game_type" jsonschema_description:"Rule set of the session"`
	Status       domain.Status      `json:"status" jsonschema_description:"not_started, in_progress or ended"`
	Turn         int                `json:"turn" jsonschema_description:"Turn counter"`
	TurnOwner    string             `json:"turn_owner,omitempty" jsonschema_description:"Player expected to act"`
	ValidActions []string           `json:"valid_actions,omitempty" jsonschema_description:"Actions the turn owner may take"`
	Players      []string           `json:"players,omitempty" jsonschema_description:"Seated players"`
	Eliminated   []string           `json:"eliminated,omitempty" jsonschema_description:"Players removed from the rotation"`
	State        any                `json:"state,omitempty" jsonschema_description:"Game specific state"`
	Result       *domain.GameResult `json:"result,omitempty" jsonschema_description:"Final result once ended"`
}

func viewOf(snap domain.Snapshot) SessionView {
	v := SessionView{
		SessionID:    snap.SessionID,
		GameType:     snap.GameType,
		Status:       snap.Status,
		Turn:         snap.Turn,
		TurnOwner:    snap.TurnOwner,
		ValidActions: snap.Valid,
		Eliminated:   snap.Eliminated,
		State:        snap.State,
		Result:       snap.Result,
	}
	for _, p := range snap.Players {
		v.Players = append(v.Players, p.ID)
	}
	return v
}

// CreateArgs are the arguments of create_session.
type CreateArgs struct {
	GameType      string `json:"game_type"`
	MaxRounds     int    `json:"max_rounds,omitempty"`
	TurnTimeout   string `json:"turn_timeout,omitempty"`
	TimeoutPolicy string `json:"timeout_policy,omitempty"`
}

// StartArgs are the arguments of start_session.
type StartArgs struct {
	SessionID string   `json:"session_id"`
	Humans    []string `json:"humans,omitempty"`
	AI        []string `json:"ai,omitempty"`
	Provider  string   `json:"provider,omitempty"`
}

// ActionArgs are the arguments of submit_action.
type ActionArgs struct {
	SessionID  string         `json:"session_id"`
	PlayerID   string         `json:"player_id"`
	Action     string         `json:"action"`
	Payload    map[string]any `json:"payload,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// AdvanceResult is the structured result of advance_turn.
type AdvanceResult struct {
	Session  SessionView          `json:"session"`
	PlayerID string               `json:"player_id,omitempty"`
	Action   *domain.PlayerAction `json:"action,omitempty"`
	Waiting  bool                 `json:"waiting,omitempty"`
	Policy   string               `json:"policy,omitempty"`
	Cause    string               `json:"cause,omitempty"`
}

// GameList is the structured result of list_games.
type GameList struct {
	Games []games.Definition `json:"games"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_games",
		mcp.WithDescription("List the playable game types with their categories and default settings."),
		mcp.WithString("category", mcp.Description("Only list games of this category (strategic, collective, survival, trust)")),
		mcp.WithOutputSchema[GameList](),
	), mcp.NewStructuredToolHandler(s.handleListGames))

	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new game session. It has to be started with players before anyone can act."),
		mcp.WithString("game_type", mcp.Required(), mcp.Description("Game type, see list_games")),
		mcp.WithNumber("max_rounds", mcp.Description("Number of rounds for round based games")),
		mcp.WithString("turn_timeout", mcp.Description("Turn timeout as a duration, e.g. 30s")),
		mcp.WithString("timeout_policy", mcp.Description("forfeit, eliminate or abort")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Seat players and start a session. Humans act through submit_action; AI players are driven by advance_turn."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to start")),
		mcp.WithArray("humans", mcp.Description("Ids of human players"), mcp.WithStringItems()),
		mcp.WithArray("ai", mcp.Description("Ids of AI players"), mcp.WithStringItems()),
		mcp.WithString("provider", mcp.Description("AI provider for the ai players, default mock")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("submit_action",
		mcp.WithDescription("Submit the action of a human player whose turn it is."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("player_id", mcp.Required(), mcp.Description("Acting player")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of the valid actions")),
		mcp.WithObject("payload", mcp.Description("Action parameters, e.g. {\"quantity\": 3, \"face\": 5} for a bid")),
		mcp.WithString("reasoning", mcp.Description("Why the action was chosen")),
		mcp.WithNumber("confidence", mcp.Description("Confidence between 0 and 1")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("advance_turn",
		mcp.WithDescription("Let the engine play the current AI turn, or apply the timeout policy to an expired human turn."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithOutputSchema[AdvanceResult](),
	), mcp.NewStructuredToolHandler(s.handleAdvance))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetState))
}

func (s *Server) handleListGames(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (GameList, error) {
	defs := s.engine.Games()
	if cat, _ := args["category"].(string); cat != "" {
		filtered := defs[:0:0]
		for _, d := range defs {
			if string(d.Category) == cat {
				filtered = append(filtered, d)
			}
		}
		defs = filtered
	}
	return GameList{Games: defs}, nil
}

func (s *Server) handleCreate(ctx context.Context, request mcp.CallToolRequest, args CreateArgs) (SessionView, error) {
	cfg := domain.GameConfig{
		MaxRounds:     args.MaxRounds,
		TimeoutPolicy: domain.TimeoutPolicy(args.TimeoutPolicy),
	}
	if args.TurnTimeout != "" {
		d, err := time.ParseDuration(args.TurnTimeout)
		if err != nil {
			return SessionView{}, domain.ConfigError("turn_timeout: %v", err)
		}
		cfg.TurnTimeout = d
	}
	snap, err := s.engine.CreateSession(ctx, domain.GameType(args.GameType), cfg)
	if err != nil {
		return SessionView{}, s.toolError("create_session", err)
	}
	return viewOf(snap), nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (SessionView, error) {
	players := make([]domain.Player, 0, len(args.Humans)+len(args.AI))
	for _, id := range args.Humans {
		players = append(players, domain.Player{ID: id, Source: domain.SourceHuman})
	}
	for _, id := range args.AI {
		players = append(players, domain.Player{ID: id, Source: domain.SourceAI, Provider: args.Provider})
	}
	snap, err := s.engine.StartSession(ctx, args.SessionID, players)
	if err != nil {
		return SessionView{}, s.toolError("start_session", err)
	}
	return viewOf(snap), nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args ActionArgs) (SessionView, error) {
	action := domain.NewAction(args.PlayerID, args.Action, args.Payload).WithReasoning(args.Reasoning)
	if args.Confidence != nil {
		action = action.WithConfidence(*args.Confidence)
	}
	snap, err := s.engine.SubmitAction(ctx, args.SessionID, action)
	if err != nil {
		return SessionView{}, s.toolError("submit_action", err)
	}
	return viewOf(snap), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (AdvanceResult, error) {
	out, err := s.engine.Advance(ctx, args.SessionID)
	if err != nil {
		return AdvanceResult{}, s.toolError("advance_turn", err)
	}
	res := AdvanceResult{
		Session:  viewOf(out.Snapshot),
		PlayerID: out.PlayerID,
		Action:   out.Action,
		Waiting:  out.Waiting,
		Policy:   string(out.Policy),
	}
	if out.Err != nil {
		res.Cause = out.Err.Error()
	}
	return res, nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (SessionView, error) {
	snap, err := s.engine.GetState(ctx, args.SessionID)
	if err != nil {
		return SessionView{}, s.toolError("get_state", err)
	}
	return viewOf(snap), nil
}

func (s *Server) toolError(tool string, err error) error {
	s.logger.Debug("tool call failed", "tool", tool, "error", err)
	return fmt.Errorf("%s: %w", domain.KindOf(err), err)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("genius://sessions", "Sessions held by the engine",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode sessions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "genius://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
