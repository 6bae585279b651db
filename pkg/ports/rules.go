package ports

import (
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// Rules is the rule collaborator for one game type. Implementations must be
// pure with respect to the state they receive: Apply returns a new state and
// never mutates its input.
type Rules interface {
	// Setup builds the initial state for the seated players.
	Setup(cfg domain.GameConfig, players []domain.Player) (domain.GameState, error)

	// ValidActions lists the action types playerID may submit in state.
	// An empty result means the player cannot act and their turn is skipped.
	ValidActions(state domain.GameState, playerID string) []string

	// IsLegal checks an action against the current state. The reason is
	// reported to the caller when the action is rejected.
	IsLegal(state domain.GameState, action domain.PlayerAction) (bool, string)

	// Apply returns the state after action.
	Apply(state domain.GameState, action domain.PlayerAction) (domain.GameState, error)

	// IsTerminal reports whether the game is over and, if so, its result.
	// The engine fills in session bookkeeping (id, turns, duration).
	IsTerminal(state domain.GameState) (*domain.GameResult, bool)
}

// Forfeiter is implemented by rules that define a default move for a player
// who forfeits a turn. Rules without it simply skip the turn.
type Forfeiter interface {
	DefaultAction(state domain.GameState, playerID string) (domain.PlayerAction, bool)
}

// Eliminator is implemented by rules that need to know when the engine
// removes a player from the rotation.
type Eliminator interface {
	Eliminate(state domain.GameState, playerID string) domain.GameState
}

// Viewer is implemented by rules whose state carries information that some
// players must not see, such as other players' dice or pending choices.
// View returns the part of state visible to playerID and must not mutate
// its input.
type Viewer interface {
	View(state domain.GameState, playerID string) domain.GameState
}

// RulesFactory builds the rules for a validated configuration.
type RulesFactory func(cfg domain.GameConfig) (Rules, error)
