package ports

import (
	"context"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// AIProvider is a decision maker for AI-controlled players.
//
// The engine guarantees validActions is non-empty and re-validates the
// returned action, so a provider reporting success with an action outside
// validActions still yields an InvalidAction. Providers must not retry
// internally; failures are reported as domain.AIProviderError.
type AIProvider interface {
	Name() string
	MakeDecision(ctx context.Context, snapshot domain.Snapshot, playerID string, validActions []string) (domain.AIDecision, error)
	Capabilities() domain.Capabilities
}

// DecisionSource tells the engine where a player's actions come from: either
// an external human submission or a bound AIProvider.
type DecisionSource struct {
	Kind     domain.SourceKind
	Provider AIProvider
}

// Human is the decision source of externally submitted actions.
func Human() DecisionSource {
	return DecisionSource{Kind: domain.SourceHuman}
}

// AI binds provider as the decision source.
func AI(provider AIProvider) DecisionSource {
	return DecisionSource{Kind: domain.SourceAI, Provider: provider}
}

// IsHuman reports whether actions arrive through external submission.
func (d DecisionSource) IsHuman() bool {
	return d.Kind != domain.SourceAI || d.Provider == nil
}

// Label is the provider name, or "human".
func (d DecisionSource) Label() string {
	if d.IsHuman() {
		return string(domain.SourceHuman)
	}
	return d.Provider.Name()
}
