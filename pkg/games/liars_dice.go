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
	TypeLiarsDice domain.GameType = "liars_dice"

	actionBid  = "bid"
	actionCall = "call"

	diceFaces             = 6
	challengePenalty      = 10
	successfulBluffBonus  = 5
	correctChallengeBonus = 15
	bidBonus              = 1
)

// LiarsDice is the bluffing dice game: raise the bid on the number of dice
// showing a face across all cups, or call the previous bidder a liar. Ones
// are wild unless the bid is on ones.
func LiarsDice() Definition {
	return Definition{
		Type:        TypeLiarsDice,
		Name:        "Liar's Dice",
		Category:    domain.CategoryTrust,
		Description: "Bid on hidden dice or call the bluff; the last player holding dice wins.",
		Defaults:    defaults(2, 6, 100, 30*time.Second, map[string]string{"dice": "5"}),
		New: func(cfg domain.GameConfig) (ports.Rules, error) {
			dice, err := intRule(cfg, "dice", 5)
			if err != nil {
				return nil, err
			}
			if dice < 1 {
				return nil, domain.ConfigError("rule dice must be at least 1, got %d", dice)
			}
			return &diceRules{dicePerPlayer: dice, maxRounds: max(cfg.MaxRounds, 1)}, nil
		},
	}
}

// Bid is a claim about the dice on the table.
type Bid struct {
	Player   string `json:"player,omitempty"`
	Quantity int    `json:"quantity"`
	Face     int    `json:"face"`
}

func (b Bid) beats(prev *Bid) bool {
	if prev == nil {
		return true
	}
	return b.Quantity > prev.Quantity || (b.Quantity == prev.Quantity && b.Face > prev.Face)
}

// minimumRaise returns the smallest bid above prev.
func minimumRaise(prev *Bid) Bid {
	switch {
	case prev == nil:
		return Bid{Quantity: 1, Face: 2}
	case prev.Face < diceFaces:
		return Bid{Quantity: prev.Quantity, Face: prev.Face + 1}
	default:
		return Bid{Quantity: prev.Quantity + 1, Face: 2}
	}
}

// Challenge records how a call was settled.
type Challenge struct {
	Challenger string `json:"challenger"`
	Bid        Bid    `json:"bid"`
	Actual     int    `json:"actual"`
	Loser      string `json:"loser"`
}

// DiceState is the state of a liars_dice session.
type DiceState struct {
	Players    []string         `json:"players"`
	Cups       map[string][]int `json:"-"`
	DiceCount  map[string]int   `json:"dice_count"`
	CurrentBid *Bid             `json:"current_bid,omitempty"`
	Round      int              `json:"round"`
	MaxRounds  int              `json:"max_rounds"`
	Scores     map[string]int   `json:"scores"`
	Challenges []Challenge      `json:"challenges"`

	rng rand.PCG
}

func (s *DiceState) Clone() domain.GameState {
	cp := *s
	cp.Players = slices.Clone(s.Players)
	cp.Cups = make(map[string][]int, len(s.Cups))
	for id, cup := range s.Cups {
		cp.Cups[id] = slices.Clone(cup)
	}
	cp.DiceCount = maps.Clone(s.DiceCount)
	if s.CurrentBid != nil {
		b := *s.CurrentBid
		cp.CurrentBid = &b
	}
	cp.Scores = maps.Clone(s.Scores)
	cp.Challenges = slices.Clone(s.Challenges)
	return &cp
}

func (s *DiceState) totalDice() int {
	n := 0
	for _, c := range s.DiceCount {
		n += c
	}
	return n
}

func (s *DiceState) inPlay() []string {
	return slices.DeleteFunc(slices.Clone(s.Players), func(id string) bool { return s.DiceCount[id] == 0 })
}

func (s *DiceState) count(face int) int {
	n := 0
	for _, cup := range s.Cups {
		for _, d := range cup {
			if d == face || (d == 1 && face != 1) {
				n++
			}
		}
	}
	return n
}

func (s *DiceState) roll() {
	r := rand.New(&s.rng)
	for _, id := range s.Players {
		cup := make([]int, s.DiceCount[id])
		for i := range cup {
			cup[i] = r.IntN(diceFaces) + 1
		}
		s.Cups[id] = cup
	}
}

type diceRules struct {
	dicePerPlayer int
	maxRounds     int
}

func (r *diceRules) Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error) {
	src, err := newRand(cfg)
	if err != nil {
		return nil, err
	}
	st := &DiceState{
		Players:   ids(players),
		Cups:      make(map[string][]int, len(players)),
		DiceCount: make(map[string]int, len(players)),
		MaxRounds: r.maxRounds,
		Scores:    make(map[string]int, len(players)),
		rng:       *src,
	}
	for _, id := range st.Players {
		st.DiceCount[id] = r.dicePerPlayer
		st.Scores[id] = 0
	}
	st.roll()
	return st, nil
}

func (r *diceRules) ValidActions(state domain.GameState, playerID string) []string {
	st := state.(*DiceState)
	if st.DiceCount[playerID] == 0 || st.Round >= st.MaxRounds {
		return nil
	}
	var valid []string
	if st.canRaise() {
		valid = append(valid, actionBid)
	}
	if st.CurrentBid != nil && st.CurrentBid.Player != playerID {
		valid = append(valid, actionCall)
	}
	return valid
}

// canRaise reports whether any bid above the current one fits the table.
func (s *DiceState) canRaise() bool {
	return minimumRaise(s.CurrentBid).Quantity <= s.totalDice()
}

// bidFrom decodes the bid payload; an empty payload is the minimum raise.
func bidFrom(st *DiceState, action domain.PlayerAction) (Bid, error) {
	if len(action.Payload) == 0 {
		b := minimumRaise(st.CurrentBid)
		b.Player = action.PlayerID
		return b, nil
	}
	var b Bid
	if err := decodePayload(action.Payload, &b); err != nil {
		return Bid{}, err
	}
	b.Player = action.PlayerID
	return b, nil
}

func (r *diceRules) IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string) {
	st := state.(*DiceState)
	switch action.Type {
	case actionBid:
		b, err := bidFrom(st, action)
		if err != nil {
			return false, fmt.Sprintf("bad bid payload: %v", err)
		}
		if b.Face < 1 || b.Face > diceFaces {
			return false, fmt.Sprintf("face must be between 1 and %d, got %d", diceFaces, b.Face)
		}
		if b.Quantity < 1 || b.Quantity > st.totalDice() {
			return false, fmt.Sprintf("quantity must be between 1 and %d, got %d", st.totalDice(), b.Quantity)
		}
		if !b.beats(st.CurrentBid) {
			return false, fmt.Sprintf("bid %dx%d does not raise %dx%d", b.Quantity, b.Face, st.CurrentBid.Quantity, st.CurrentBid.Face)
		}
		return true, ""
	case actionCall:
		if st.CurrentBid == nil {
			return false, "there is no bid to call"
		}
		if st.CurrentBid.Player == action.PlayerID {
			return false, "cannot call your own bid"
		}
		return true, ""
	}
	return false, unknownAction(action)
}

func (r *diceRules) Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error) {
	next := state.Clone().(*DiceState)
	switch action.Type {
	case actionBid:
		b, err := bidFrom(next, action)
		if err != nil {
			return nil, domain.InvalidAction("bad bid payload: %v", err)
		}
		next.CurrentBid = &b
		next.Scores[action.PlayerID] += bidBonus
	case actionCall:
		next.settle(action.PlayerID)
	default:
		return nil, domain.InvalidAction("%s", unknownAction(action))
	}
	return next, nil
}

// settle resolves a call and starts a new round.
func (s *DiceState) settle(challenger string) {
	bid := *s.CurrentBid
	actual := s.count(bid.Face)
	bluff := actual < bid.Quantity

	loser := challenger
	if bluff {
		loser = bid.Player
		s.Scores[challenger] += correctChallengeBonus
		s.Scores[bid.Player] -= challengePenalty
	} else {
		s.Scores[challenger] -= challengePenalty
		s.Scores[bid.Player] += successfulBluffBonus
	}
	if s.DiceCount[loser] > 0 {
		s.DiceCount[loser]--
	}

	s.Challenges = append(s.Challenges, Challenge{Challenger: challenger, Bid: bid, Actual: actual, Loser: loser})
	s.CurrentBid = nil
	s.Round++
	s.roll()
}

func (r *diceRules) IsTerminal(state domain.GameState) (*domain.GameResult, bool) {
	st := state.(*DiceState)
	alive := st.inPlay()
	switch {
	case len(alive) == 1:
		return &domain.GameResult{
			Winners:     alive,
			FinalScores: maps.Clone(st.Scores),
			Outcome:     fmt.Sprintf("%s is the last player holding dice", alive[0]),
		}, true
	case len(alive) == 0:
		return &domain.GameResult{Winners: []string{}, FinalScores: maps.Clone(st.Scores), Outcome: "no dice left"}, true
	case st.Round >= st.MaxRounds:
		winners := topScorers(st.DiceCount, alive)
		return &domain.GameResult{
			Winners:     winners,
			FinalScores: maps.Clone(st.Scores),
			Outcome:     fmt.Sprintf("round limit reached, %v hold the most dice", winners),
		}, true
	}
	return nil, false
}

// DefaultAction makes the minimum raise, or calls once the bid is at the
// ceiling of the dice on the table.
func (r *diceRules) DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool) {
	st := state.(*DiceState)
	if st.canRaise() {
		return domain.NewAction(playerID, actionBid, nil), true
	}
	if st.CurrentBid != nil && st.CurrentBid.Player != playerID {
		return domain.NewAction(playerID, actionCall, nil), true
	}
	return domain.PlayerAction{}, false
}

// Eliminate empties the player's cup. A bid they made stays on the table.
func (r *diceRules) Eliminate(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*DiceState)
	next.DiceCount[playerID] = 0
	next.Cups[playerID] = nil
	return next
}

// View leaves only the player's own cup and drops the roll source.
func (r *diceRules) View(state domain.GameState, playerID string) domain.GameState {
	next := state.Clone().(*DiceState)
	for id := range next.Cups {
		if id != playerID {
			delete(next.Cups, id)
		}
	}
	next.rng = rand.PCG{}
	return next
}
