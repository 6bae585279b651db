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
	TypeMinorityGame domain.GameType = "minority_game"

	actionZero = "zero"
	actionOne  = "one"

	minorityReward  = 10
	majorityPenalty = -5
)

// MinorityGame rewards the players who picked the less popular side.
func MinorityGame() Definition {
	return Definition{
		Type:        TypeMinorityGame,
		Name:        "Minority Game",
		Category:    domain.CategoryStrategic,
		Description: "Pick zero or one; the smaller group scores.",
		Defaults:    defaults(3, 16, 20, 20*time.Second, map[string]string{"win_score": "500", "lose_score": "-200"}),
		New: func(cfg domain.GameConfig) (ports.Rules, error) {
			win, err := intRule(cfg, "win_score", 500)
			if err != nil {
				return nil, err
			}
			lose, err := intRule(cfg, "lose_score", -200)
			if err != nil {
				return nil, err
			}
			return &minorityRules{maxRounds: max(cfg.MaxRounds, 1), winScore: win, loseScore: lose}, nil
		},
	}
}

// MinorityState is the state of a minority_game session.
type MinorityState struct {
	commitRound
	Round     int            `json:"round"`
	MaxRounds int            `json:"max_rounds"`
	Scores    map[string]int `json:"scores"`
	// Minorities holds the winning side of each round, "" for a tie.
	Minorities []string `json:"minorities"`
}

func (s *MinorityState) Clone() domain.GameState {
	cp := *s
	cp.commitRound = s.commitRound.clone()
	cp.Scores = maps.Clone(s.Scores)
	cp.Minorities = slices.Clone(s.Minorities)
	return &cp
}

type minorityRules struct {
	maxRounds int
	winScore  int
	loseScore int
}

func (r *minorityRules) Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error) {
	st := &MinorityState{
		commitRound: newCommitRound(ids(players)),
		MaxRounds:   r.maxRounds,
		Scores:      make(map[string]int, len(players)),
	}
	for _, id := range st.Players {
		st.Scores[id] = 0
	}
	return st, nil
}

func (r *minorityRules) ValidActions(state domain.GameState, playerID string) []string {
	st := state.(*MinorityState)
	if r.over(st) || !st.canCommit(playerID) {
		return nil
	}
	return []string{actionZero, actionOne}
}

func (r *minorityRules) IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string) {
	st := state.(*MinorityState)
	if action.Type != actionZero && action.Type != actionOne {
		return false, unknownAction(action)
	}
	if !st.canCommit(action.PlayerID) {
		return false, fmt.Sprintf("%s already chose this round", action.PlayerID)
	}
	return true, ""
}

func (r *minorityRules) Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error) {
	next := state.Clone().(*MinorityState)
	next.Pending[action.PlayerID] = action.Type
	if next.complete() {
		next.resolve()
	}
	return next, nil
}

func (s *MinorityState) resolve() {
	var zeros, ones int
	for _, choice := range s.Pending {
		if choice == actionZero {
			zeros++
		} else {
			ones++
		}
	}

	minority := ""
	switch {
	case zeros < ones:
		minority = actionZero
	case ones < zeros:
		minority = actionOne
	}

	if minority != "" {
		for id, choice := range s.Pending {
			if choice == minority {
				s.Scores[id] += minorityReward
			} else {
				s.Scores[id] += majorityPenalty
			}
		}
	}
	s.Minorities = append(s.Minorities, minority)
	s.Pending = map[string]string{}
	s.Round++
}

func (r *minorityRules) over(st *MinorityState) bool {
	if st.Round >= st.MaxRounds || len(st.active()) < 2 {
		return true
	}
	for _, score := range st.Scores {
		if score >= r.winScore || score <= r.loseScore {
			return true
		}
	}
	return false
}

func (r *minorityRules) IsTerminal(state domain.GameState) (*domain.GameResult, bool) {
	st := state.(*MinorityState)
	if !r.over(st) {
		return nil, false
	}
	winners := topScorers(st.Scores, st.active())
	return &domain.GameResult{
		Winners:     winners,
		FinalScores: maps.Clone(st.Scores),
		Outcome:     fmt.Sprintf("%v lead after %d rounds", winners, st.Round),
	}, true
}

// DefaultAction picks zero for a player who missed the round.
func (r *minorityRules) DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool) {
	return domain.NewAction(playerID, actionZero, nil), true
}

func (r *minorityRules) Eliminate(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*MinorityState)
	next.Eliminated[playerID] = true
	delete(next.Pending, playerID)
	if next.complete() {
		next.resolve()
	}
	return next
}

func (r *minorityRules) View(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*MinorityState)
	next.commitRound = next.visibleTo(playerID)
	return next
}
