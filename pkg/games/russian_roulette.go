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
	TypeRussianRoulette domain.GameType = "russian_roulette"

	actionPull = "pull"
	actionSpin = "spin"
	actionPass = "pass"
)

// RussianRoulette passes a revolver around until one player is left.
// "spin" re-randomises the cylinder before pulling; "pass" skips the pull
// and is limited per player.
func RussianRoulette() Definition {
	return Definition{
		Type:        TypeRussianRoulette,
		Name:        "Russian Roulette",
		Category:    domain.CategorySurvival,
		Description: "Pull, spin or pass; survive the longest.",
		Defaults:    defaults(2, 6, 50, 15*time.Second, map[string]string{"chambers": "6", "bullets": "1", "passes": "3"}),
		New: func(cfg domain.GameConfig) (ports.Rules, error) {
			chambers, err := intRule(cfg, "chambers", 6)
			if err != nil {
				return nil, err
			}
			bullets, err := intRule(cfg, "bullets", 1)
			if err != nil {
				return nil, err
			}
			passes, err := intRule(cfg, "passes", 3)
			if err != nil {
				return nil, err
			}
			if chambers < 1 || bullets < 1 || bullets > chambers {
				return nil, domain.ConfigError("need 1 <= bullets (%d) <= chambers (%d)", bullets, chambers)
			}
			return &rouletteRules{chambers: chambers, bullets: bullets, passes: passes, maxRounds: max(cfg.MaxRounds, 1)}, nil
		},
	}
}

// RouletteState is the state of a russian_roulette session.
type RouletteState struct {
	Players   []string        `json:"players"`
	Alive     map[string]bool `json:"alive"`
	Passes    map[string]int  `json:"passes_left"`
	Cylinder  []bool          `json:"-"`
	Position  int             `json:"-"`
	Pulls     int             `json:"pulls"`
	MaxRounds int             `json:"max_rounds"`
	Deaths    []string        `json:"deaths"`

	rng rand.PCG
}

func (s *RouletteState) Clone() domain.GameState {
	cp := *s
	cp.Players = slices.Clone(s.Players)
	cp.Alive = maps.Clone(s.Alive)
	cp.Passes = maps.Clone(s.Passes)
	cp.Cylinder = slices.Clone(s.Cylinder)
	cp.Deaths = slices.Clone(s.Deaths)
	return &cp
}

func (s *RouletteState) survivors() []string {
	return slices.DeleteFunc(slices.Clone(s.Players), func(id string) bool { return !s.Alive[id] })
}

// load puts bullets into random chambers and spins.
func (s *RouletteState) load(bullets int) {
	r := rand.New(&s.rng)
	for i := range s.Cylinder {
		s.Cylinder[i] = false
	}
	for _, i := range r.Perm(len(s.Cylinder))[:bullets] {
		s.Cylinder[i] = true
	}
	s.Position = r.IntN(len(s.Cylinder))
}

func (s *RouletteState) spin() {
	s.Position = rand.New(&s.rng).IntN(len(s.Cylinder))
}

// pull fires the current chamber and reports whether it held a bullet.
func (s *RouletteState) pull() bool {
	fired := s.Cylinder[s.Position]
	s.Position = (s.Position + 1) % len(s.Cylinder)
	s.Pulls++
	return fired
}

type rouletteRules struct {
	chambers  int
	bullets   int
	passes    int
	maxRounds int
}

func (r *rouletteRules) Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error) {
	src, err := newRand(cfg)
	if err != nil {
		return nil, err
	}
	st := &RouletteState{
		Players:   ids(players),
		Alive:     make(map[string]bool, len(players)),
		Passes:    make(map[string]int, len(players)),
		Cylinder:  make([]bool, r.chambers),
		MaxRounds: r.maxRounds,
		rng:       *src,
	}
	for _, id := range st.Players {
		st.Alive[id] = true
		st.Passes[id] = r.passes
	}
	st.load(r.bullets)
	return st, nil
}

func (r *rouletteRules) ValidActions(state domain.GameState, playerID string) []string {
	st := state.(*RouletteState)
	if !st.Alive[playerID] {
		return nil
	}
	if st.Passes[playerID] > 0 {
		return []string{actionPull, actionSpin, actionPass}
	}
	return []string{actionPull, actionSpin}
}

func (r *rouletteRules) IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string) {
	st := state.(*RouletteState)
	if !st.Alive[action.PlayerID] {
		return false, fmt.Sprintf("%s is out of the game", action.PlayerID)
	}
	switch action.Type {
	case actionPull, actionSpin:
		return true, ""
	case actionPass:
		if st.Passes[action.PlayerID] == 0 {
			return false, "no passes left"
		}
		return true, ""
	}
	return false, unknownAction(action)
}

func (r *rouletteRules) Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error) {
	next := state.Clone().(*RouletteState)
	switch action.Type {
	case actionPass:
		next.Passes[action.PlayerID]--
		return next, nil
	case actionSpin:
		next.spin()
	case actionPull:
	default:
		return nil, domain.InvalidAction("%s", unknownAction(action))
	}
	if next.pull() {
		next.Alive[action.PlayerID] = false
		next.Deaths = append(next.Deaths, action.PlayerID)
		next.load(r.bullets)
	}
	return next, nil
}

func (r *rouletteRules) IsTerminal(state domain.GameState) (*domain.GameResult, bool) {
	st := state.(*RouletteState)
	alive := st.survivors()
	limit := st.MaxRounds * len(st.Players)
	if len(alive) > 1 && st.Pulls < limit {
		return nil, false
	}

	scores := make(map[string]int, len(st.Players))
	for i, id := range st.Deaths {
		scores[id] = i
	}
	for _, id := range alive {
		scores[id] = len(st.Players)
	}

	outcome := "nobody survived"
	switch {
	case len(alive) == 1:
		outcome = fmt.Sprintf("%s survived", alive[0])
	case len(alive) > 1:
		outcome = fmt.Sprintf("%d players survived the round limit", len(alive))
	}
	slices.Sort(alive)
	if alive == nil {
		alive = []string{}
	}
	return &domain.GameResult{Winners: alive, FinalScores: scores, Outcome: outcome}, true
}

// DefaultAction pulls the trigger.
func (r *rouletteRules) DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool) {
	return domain.NewAction(playerID, actionPull, nil), true
}

func (r *rouletteRules) Eliminate(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*RouletteState)
	if next.Alive[playerID] {
		next.Alive[playerID] = false
		next.Deaths = append(next.Deaths, playerID)
	}
	return next
}

// View hides the loaded chambers and where the cylinder stopped.
func (r *rouletteRules) View(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*RouletteState)
	next.Cylinder = nil
	next.Position = 0
	next.rng = rand.PCG{}
	return next
}
