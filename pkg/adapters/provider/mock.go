// Package provider contains in-process AI providers used for simulations,
// tests and as fallbacks when no model backend is configured.
package provider

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// Mock picks an action without looking at the game. In deterministic mode
// (the default) it always returns validActions[0].
type Mock struct {
	name    string
	latency time.Duration
	err     error

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Mock.
type Option func(*Mock)

// WithName overrides the provider name.
func WithName(name string) Option {
	return func(m *Mock) {
		m.name = name
	}
}

// WithSeed switches to seeded random choice among the valid actions.
func WithSeed(seed uint64) Option {
	return func(m *Mock) {
		m.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithLatency delays every decision, honouring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(m *Mock) {
		m.latency = d
	}
}

// WithError makes every decision fail with err wrapped as an AIProviderError.
func WithError(err error) Option {
	return func(m *Mock) {
		m.err = err
	}
}

// NewMock creates a mock provider named "mock".
func NewMock(opts ...Option) *Mock {
	m := &Mock{name: "mock"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsReasoning:  true,
		SupportsConfidence: true,
		MaxContextLength:   0,
		SupportsStreaming:  false,
	}
}

func (m *Mock) MakeDecision(ctx context.Context, snapshot domain.Snapshot, playerID string, validActions []string) (domain.AIDecision, error) {
	if m.latency > 0 {
		t := time.NewTimer(m.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return domain.AIDecision{}, domain.AIProviderError(m.name, ctx.Err())
		case <-t.C:
		}
	}
	if m.err != nil {
		return domain.AIDecision{}, domain.AIProviderError(m.name, m.err)
	}
	if len(validActions) == 0 {
		return domain.AIDecision{}, domain.AIProviderError(m.name+": no valid actions offered", nil)
	}

	choice := validActions[0]
	reasoning := "first valid action"
	if m.rng != nil {
		m.mu.Lock()
		choice = validActions[m.rng.IntN(len(validActions))]
		m.mu.Unlock()
		reasoning = "random valid action"
	}

	action := domain.NewAction(playerID, choice, nil)
	return domain.NewDecision(action, reasoning, 1), nil
}
