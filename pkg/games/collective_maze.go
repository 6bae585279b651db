package games

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
)

const (
	TypeCollectiveMaze domain.GameType = "collective_maze"

	actionMove = "move"
	actionWait = "wait"

	exitBonus = 100
)

// Position is a cell of the maze grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var directions = map[string]Position{
	"north": {0, -1},
	"south": {0, 1},
	"west":  {-1, 0},
	"east":  {1, 0},
}

// CollectiveMaze has every player walk their own agent through a shared
// grid. The group wins together when everyone has reached the exit.
func CollectiveMaze() Definition {
	return Definition{
		Type:        TypeCollectiveMaze,
		Name:        "Collective Maze",
		Category:    domain.CategoryCollective,
		Description: "Steer your agent to the exit; the group wins only if everyone escapes.",
		Defaults:    defaults(1, 8, 40, 20*time.Second, map[string]string{"size": "7", "walls": "20"}),
		New: func(cfg domain.GameConfig) (ports.Rules, error) {
			size, err := intRule(cfg, "size", 7)
			if err != nil {
				return nil, err
			}
			walls, err := intRule(cfg, "walls", 20)
			if err != nil {
				return nil, err
			}
			if size < 3 {
				return nil, domain.ConfigError("rule size must be at least 3, got %d", size)
			}
			if walls < 0 || walls > 60 {
				return nil, domain.ConfigError("rule walls is a percentage between 0 and 60, got %d", walls)
			}
			return &mazeRules{size: size, wallPercent: walls, maxRounds: max(cfg.MaxRounds, 1)}, nil
		},
	}
}

// MazeState is the state of a collective_maze session.
type MazeState struct {
	Size      int                 `json:"size"`
	Walls     map[Position]bool   `json:"-"`
	Exit      Position            `json:"exit"`
	Agents    map[string]Position `json:"agents"`
	Escaped   map[string]bool     `json:"escaped"`
	Scores    map[string]int      `json:"scores"`
	Players   []string            `json:"players"`
	Moves     int                 `json:"moves"`
	MaxRounds int                 `json:"max_rounds"`
}

func (s *MazeState) Clone() domain.GameState {
	cp := *s
	cp.Walls = maps.Clone(s.Walls)
	cp.Agents = maps.Clone(s.Agents)
	cp.Escaped = maps.Clone(s.Escaped)
	cp.Scores = maps.Clone(s.Scores)
	cp.Players = slices.Clone(s.Players)
	return &cp
}

func (s *MazeState) open(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.Size && p.Y < s.Size && !s.Walls[p]
}

// exits lists the directions playerID can step into, in a stable order.
func (s *MazeState) exits(playerID string) []string {
	at := s.Agents[playerID]
	var out []string
	for _, name := range []string{"north", "east", "south", "west"} {
		d := directions[name]
		if s.open(Position{at.X + d.X, at.Y + d.Y}) {
			out = append(out, name)
		}
	}
	return out
}

type mazeRules struct {
	size        int
	wallPercent int
	maxRounds   int
}

// MazeMove is the payload of a move action.
type MazeMove struct {
	Direction string `json:"direction"`
}

func (r *mazeRules) Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error) {
	src, err := newRand(cfg)
	if err != nil {
		return nil, err
	}
	rng := rand.New(src)

	st := &MazeState{
		Size:      r.size,
		Walls:     map[Position]bool{},
		Exit:      Position{r.size - 1, r.size - 1},
		Agents:    make(map[string]Position, len(players)),
		Escaped:   make(map[string]bool, len(players)),
		Scores:    make(map[string]int, len(players)),
		Players:   ids(players),
		MaxRounds: r.maxRounds,
	}
	start := Position{0, 0}
	for y := 0; y < r.size; y++ {
		for x := 0; x < r.size; x++ {
			p := Position{x, y}
			// The border row and column stay clear so the exit is always reachable.
			if x == 0 || y == r.size-1 || p == st.Exit {
				continue
			}
			if rng.IntN(100) < r.wallPercent {
				st.Walls[p] = true
			}
		}
	}
	for _, id := range st.Players {
		st.Agents[id] = start
		st.Scores[id] = 0
	}
	return st, nil
}

func (r *mazeRules) ValidActions(state domain.GameState, playerID string) []string {
	st := state.(*MazeState)
	if _, ok := st.Agents[playerID]; !ok || st.Escaped[playerID] || r.outOfMoves(st) {
		return nil
	}
	return []string{actionMove, actionWait}
}

func (r *mazeRules) outOfMoves(st *MazeState) bool {
	return st.Moves >= st.MaxRounds*len(st.Players)
}

// direction decodes the move payload; without one the agent steps toward the exit.
func (s *MazeState) direction(action domain.PlayerAction) (string, error) {
	var mv MazeMove
	if err := decodePayload(action.Payload, &mv); err != nil {
		return "", err
	}
	if mv.Direction != "" {
		return mv.Direction, nil
	}
	at := s.Agents[action.PlayerID]
	for _, name := range []string{"south", "east", "north", "west"} {
		d := directions[name]
		next := Position{at.X + d.X, at.Y + d.Y}
		if s.open(next) && abs(s.Exit.X-next.X)+abs(s.Exit.Y-next.Y) < abs(s.Exit.X-at.X)+abs(s.Exit.Y-at.Y) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no step brings %s closer to the exit", action.PlayerID)
}

func (r *mazeRules) IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string) {
	st := state.(*MazeState)
	switch action.Type {
	case actionWait:
		return true, ""
	case actionMove:
		dir, err := st.direction(action)
		if err != nil {
			return false, err.Error()
		}
		if !slices.Contains(st.exits(action.PlayerID), dir) {
			return false, fmt.Sprintf("cannot move %s from %v", dir, st.Agents[action.PlayerID])
		}
		return true, ""
	}
	return false, unknownAction(action)
}

func (r *mazeRules) Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error) {
	next := state.Clone().(*MazeState)
	next.Moves++
	if action.Type == actionWait {
		return next, nil
	}
	dir, err := next.direction(action)
	if err != nil {
		return nil, domain.InvalidAction("%v", err)
	}
	d := directions[dir]
	at := next.Agents[action.PlayerID]
	pos := Position{at.X + d.X, at.Y + d.Y}
	next.Agents[action.PlayerID] = pos
	if pos == next.Exit {
		next.Escaped[action.PlayerID] = true
		next.Scores[action.PlayerID] += exitBonus - next.Moves
	}
	return next, nil
}

func (r *mazeRules) IsTerminal(state domain.GameState) (*domain.GameResult, bool) {
	st := state.(*MazeState)
	escaped := 0
	for _, id := range st.Players {
		if st.Escaped[id] {
			escaped++
		}
	}
	all := escaped == len(st.Players)
	if !all && !r.outOfMoves(st) {
		return nil, false
	}
	res := &domain.GameResult{Winners: []string{}, FinalScores: maps.Clone(st.Scores)}
	if all {
		res.Winners = slices.Sorted(slices.Values(st.Players))
		res.Outcome = "the group escaped together"
	} else {
		res.Outcome = fmt.Sprintf("%d of %d agents escaped before the move limit", escaped, len(st.Players))
	}
	return res, true
}

// DefaultAction keeps the agent in place.
func (r *mazeRules) DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool) {
	return domain.NewAction(playerID, actionWait, nil), true
}

// Eliminate removes the agent from the grid and from the group.
func (r *mazeRules) Eliminate(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*MazeState)
	delete(next.Agents, playerID)
	next.Players = slices.DeleteFunc(next.Players, func(id string) bool { return id == playerID })
	return next
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
