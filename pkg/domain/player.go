package domain

// SourceKind tells how a player's actions are produced.
type SourceKind string

const (
	SourceHuman SourceKind = "human"
	SourceAI    SourceKind = "ai"
)

// Player is a participant of a session. Provider names the AI provider bound
// to the player when Source is SourceAI; the engine resolves it on start.
type Player struct {
	ID       string            `json:"id" mapstructure:"id"`
	Name     string            `json:"name,omitempty" mapstructure:"name"`
	Source   SourceKind        `json:"source" mapstructure:"source"`
	Provider string            `json:"provider,omitempty" mapstructure:"provider"`
	Metadata map[string]string `json:"metadata,omitempty" mapstructure:"metadata"`
}

// IsHuman reports whether actions for this player arrive externally.
func (p Player) IsHuman() bool {
	return p.Source != SourceAI
}
