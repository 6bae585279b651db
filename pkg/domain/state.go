package domain

import (
	"time"
)

// GameState is the opaque state of one session. Rule sets own its concrete
// type; the engine only clones it so that readers never alias the live value.
type GameState interface {
	Clone() GameState
}

// GameResult is the final outcome of an ended session.
type GameResult struct {
	SessionID   string         `json:"session_id"`
	GameType    GameType       `json:"game_type"`
	Winners     []string       `json:"winners"`
	FinalScores map[string]int `json:"final_scores,omitempty"`
	TotalTurns  int            `json:"total_turns"`
	Outcome     string         `json:"outcome"`
	Error       *GameError     `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	EndedAt     time.Time      `json:"ended_at"`
}

// Clone returns a deep copy of r.
func (r *GameResult) Clone() *GameResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Winners = append([]string(nil), r.Winners...)
	if r.FinalScores != nil {
		out.FinalScores = make(map[string]int, len(r.FinalScores))
		for k, v := range r.FinalScores {
			out.FinalScores[k] = v
		}
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return &out
}

// Snapshot is a read-only copy of a session, safe to hand to any consumer.
type Snapshot struct {
	SessionID  string      `json:"session_id"`
	GameType   GameType    `json:"game_type"`
	Config     GameConfig  `json:"config"`
	Status     Status      `json:"status"`
	Players    []Player    `json:"players"`
	Eliminated []string    `json:"eliminated,omitempty"`
	TurnOwner  string      `json:"turn_owner,omitempty"`
	Turn       int         `json:"turn"`
	Deadline   time.Time   `json:"deadline,omitempty"`
	Valid      []string    `json:"valid_actions,omitempty"`
	State      any         `json:"state,omitempty"`
	Result     *GameResult `json:"result,omitempty"`
	Events     []Event     `json:"events,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Player returns the player with the given id.
func (s *Snapshot) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// ForDecision strips bookkeeping that decision makers must not see. Hidden
// game state is narrowed separately by the rules, see ports.Viewer.
func (s Snapshot) ForDecision() Snapshot {
	s.Deadline = time.Time{}
	s.Events = nil
	return s
}

// Clone returns a deep copy of s. Opaque state is cloned when it is a
// GameState and shared otherwise (decoded stores hold plain JSON values).
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.Eliminated = append([]string(nil), s.Eliminated...)
	out.Valid = append([]string(nil), s.Valid...)
	out.Events = append([]Event(nil), s.Events...)
	out.Result = s.Result.Clone()
	if gs, ok := s.State.(GameState); ok {
		out.State = gs.Clone()
	}
	return &out
}
