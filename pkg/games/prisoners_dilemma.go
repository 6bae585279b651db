package games

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
)

const (
	TypePrisonersDilemma domain.GameType = "prisoners_dilemma"

	actionCooperate = "cooperate"
	actionDefect    = "defect"
)

// PrisonersDilemma is the iterated dilemma played pairwise between all
// players. Choices stay hidden until every active player has committed.
func PrisonersDilemma() Definition {
	return Definition{
		Type:        TypePrisonersDilemma,
		Name:        "Prisoner's Dilemma",
		Category:    domain.CategoryTrust,
		Description: "Cooperate or defect against every other player each round.",
		Defaults:    defaults(2, 8, 10, 30*time.Second, nil),
		New: func(cfg domain.GameConfig) (ports.Rules, error) {
			return &dilemmaRules{maxRounds: max(cfg.MaxRounds, 1)}, nil
		},
	}
}

// DilemmaRound is the resolved outcome of one round.
type DilemmaRound struct {
	Choices map[string]string `json:"choices"`
	Payoffs map[string]int    `json:"payoffs"`
}

// DilemmaState is the state of a prisoners_dilemma session.
type DilemmaState struct {
	commitRound
	Round     int            `json:"round"`
	MaxRounds int            `json:"max_rounds"`
	Scores    map[string]int `json:"scores"`
	History   []DilemmaRound `json:"history"`
}

func (s *DilemmaState) Clone() domain.GameState {
	cp := *s
	cp.commitRound = s.commitRound.clone()
	cp.Scores = maps.Clone(s.Scores)
	cp.History = slices.Clone(s.History)
	return &cp
}

type dilemmaRules struct {
	maxRounds int
}

// payoff returns the points of a player choosing mine against theirs.
func payoff(mine, theirs string) int {
	switch {
	case mine == actionCooperate && theirs == actionCooperate:
		return 3
	case mine == actionCooperate && theirs == actionDefect:
		return 0
	case mine == actionDefect && theirs == actionCooperate:
		return 5
	default:
		return 1
	}
}

func (r *dilemmaRules) Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error) {
	st := &DilemmaState{
		commitRound: newCommitRound(ids(players)),
		MaxRounds:   r.maxRounds,
		Scores:      make(map[string]int, len(players)),
	}
	for _, id := range st.Players {
		st.Scores[id] = 0
	}
	return st, nil
}

func (r *dilemmaRules) ValidActions(state domain.GameState, playerID string) []string {
	st := state.(*DilemmaState)
	if st.Round >= st.MaxRounds || !st.canCommit(playerID) {
		return nil
	}
	return []string{actionCooperate, actionDefect}
}

func (r *dilemmaRules) IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string) {
	st := state.(*DilemmaState)
	if action.Type != actionCooperate && action.Type != actionDefect {
		return false, unknownAction(action)
	}
	if !st.canCommit(action.PlayerID) {
		return false, fmt.Sprintf("%s already committed this round", action.PlayerID)
	}
	return true, ""
}

func (r *dilemmaRules) Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error) {
	next := state.Clone().(*DilemmaState)
	next.Pending[action.PlayerID] = action.Type
	if next.complete() {
		next.resolve()
	}
	return next, nil
}

func (s *DilemmaState) resolve() {
	active := s.active()
	round := DilemmaRound{
		Choices: maps.Clone(s.Pending),
		Payoffs: make(map[string]int, len(active)),
	}
	for i, a := range active {
		for _, b := range active[i+1:] {
			pa := payoff(s.Pending[a], s.Pending[b])
			pb := payoff(s.Pending[b], s.Pending[a])
			round.Payoffs[a] += pa
			round.Payoffs[b] += pb
		}
	}
	for id, p := range round.Payoffs {
		s.Scores[id] += p
	}
	s.History = append(s.History, round)
	s.Pending = map[string]string{}
	s.Round++
}

func (r *dilemmaRules) IsTerminal(state domain.GameState) (*domain.GameResult, bool) {
	st := state.(*DilemmaState)
	active := st.active()
	if st.Round < st.MaxRounds && len(active) >= 2 {
		return nil, false
	}
	winners := topScorers(st.Scores, active)
	return &domain.GameResult{
		Winners:     winners,
		FinalScores: maps.Clone(st.Scores),
		Outcome:     fmt.Sprintf("%v lead after %d rounds", winners, st.Round),
	}, true
}

// DefaultAction treats a missed choice as a defection.
func (r *dilemmaRules) DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool) {
	return domain.NewAction(playerID, actionDefect, nil), true
}

// Eliminate drops the player and resolves the round if they were the last
// one to commit.
func (r *dilemmaRules) Eliminate(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*DilemmaState)
	next.Eliminated[playerID] = true
	delete(next.Pending, playerID)
	if next.complete() {
		next.resolve()
	}
	return next
}

// View hides the choices other players committed this round.
func (r *dilemmaRules) View(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*DilemmaState)
	next.commitRound = next.visibleTo(playerID)
	return next
}
