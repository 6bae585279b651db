package games

import (
	"maps"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// decodePayload maps an action payload onto out using its json tags.
// JSON numbers arrive as float64, hence the weak typing.
func decodePayload(payload map[string]any, out any) error {
	if len(payload) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(payload)
}

// intRule reads an integer rule setting.
func intRule(cfg domain.GameConfig, name string, fallback int) (int, error) {
	raw := cfg.Rule(name, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ConfigError("rule %s: %q is not an integer", name, raw)
	}
	return v, nil
}

// newRand returns a PCG source seeded from the "seed" rule, or randomly.
func newRand(cfg domain.GameConfig) (*rand.PCG, error) {
	raw := cfg.Rule("seed", "")
	if raw == "" {
		return rand.NewPCG(rand.Uint64(), rand.Uint64()), nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, domain.ConfigError("rule seed: %q is not an unsigned integer", raw)
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), nil
}

func ids(players []domain.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

// topScorers returns the sorted ids holding the highest score among candidates.
func topScorers(scores map[string]int, candidates []string) []string {
	best := 0
	var winners []string
	for i, id := range candidates {
		s := scores[id]
		switch {
		case i == 0 || s > best:
			best = s
			winners = []string{id}
		case s == best:
			winners = append(winners, id)
		}
	}
	slices.Sort(winners)
	return winners
}

// commitRound tracks a round in which every active player commits one choice
// before the round is resolved.
type commitRound struct {
	Players    []string          `json:"players"`
	Eliminated map[string]bool   `json:"eliminated,omitempty"`
	Pending    map[string]string `json:"-"`
}

func newCommitRound(players []string) commitRound {
	return commitRound{
		Players:    players,
		Eliminated: map[string]bool{},
		Pending:    map[string]string{},
	}
}

func (c commitRound) clone() commitRound {
	return commitRound{
		Players:    slices.Clone(c.Players),
		Eliminated: maps.Clone(c.Eliminated),
		Pending:    maps.Clone(c.Pending),
	}
}

// visibleTo drops every pending choice but playerID's own.
func (c commitRound) visibleTo(playerID string) commitRound {
	out := c.clone()
	out.Pending = map[string]string{}
	if choice, ok := c.Pending[playerID]; ok {
		out.Pending[playerID] = choice
	}
	return out
}

func (c commitRound) active() []string {
	return slices.DeleteFunc(slices.Clone(c.Players), func(id string) bool { return c.Eliminated[id] })
}

func (c commitRound) canCommit(playerID string) bool {
	if c.Eliminated[playerID] || !slices.Contains(c.Players, playerID) {
		return false
	}
	_, done := c.Pending[playerID]
	return !done
}

func (c commitRound) complete() bool {
	active := c.active()
	if len(active) == 0 {
		return false
	}
	for _, id := range active {
		if _, ok := c.Pending[id]; !ok {
			return false
		}
	}
	return true
}
