package games

import (
	"fmt"
	"slices"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/registry"
)

// Definition describes a playable game type.
type Definition struct {
	Type        domain.GameType    `json:"type"`
	Name        string             `json:"name"`
	Category    domain.Category    `json:"category"`
	Description string             `json:"description"`
	Defaults    domain.GameConfig  `json:"defaults"`
	New         ports.RulesFactory `json:"-"`
}

// Catalog indexes game definitions by type.
type Catalog struct {
	defs *registry.Registry[Definition]
}

// NewCatalog creates a catalog holding defs.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: registry.New[Definition]()}
	for _, def := range defs {
		c.Register(def)
	}
	return c
}

// DefaultCatalog returns a catalog with every built-in game.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		PrisonersDilemma(),
		LiarsDice(),
		MinorityGame(),
		RussianRoulette(),
		CollectiveMaze(),
	)
}

// Register adds def, replacing any definition of the same type. The defaults
// are completed so every definition yields a valid configuration.
func (c *Catalog) Register(def Definition) {
	def.Defaults.GameType = def.Type
	def.Defaults = def.Defaults.WithDefaults()
	c.defs.Register(string(def.Type), def)
}

// Lookup returns the definition of t.
func (c *Catalog) Lookup(t domain.GameType) (Definition, bool) {
	return c.defs.Lookup(string(t))
}

// List returns all definitions sorted by type.
func (c *Catalog) List() []Definition {
	names := c.defs.Names()
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		if def, ok := c.defs.Lookup(name); ok {
			out = append(out, def)
		}
	}
	return out
}

// ByCategory returns the definitions of one category.
func (c *Catalog) ByCategory(cat domain.Category) []Definition {
	return slices.DeleteFunc(c.List(), func(d Definition) bool {
		return d.Category != cat
	})
}

// Rules builds the rules of t for cfg.
func (c *Catalog) Rules(t domain.GameType, cfg domain.GameConfig) (ports.Rules, error) {
	def, ok := c.Lookup(t)
	if !ok {
		return nil, domain.ConfigError("unknown game type %q", t)
	}
	rules, err := def.New(cfg)
	if err != nil {
		if _, ok := err.(*domain.GameError); ok {
			return nil, err
		}
		return nil, domain.ConfigError("%s: %v", t, err)
	}
	return rules, nil
}

func defaults(min, max, rounds int, timeout time.Duration, rules map[string]string) domain.GameConfig {
	return domain.GameConfig{
		TurnTimeout: timeout,
		MinPlayers:  min,
		MaxPlayers:  max,
		MaxRounds:   rounds,
		Rules:       rules,
	}
}

func unknownAction(action domain.PlayerAction) string {
	return fmt.Sprintf("unknown action %q", action.Type)
}
