package runtime_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/runtime"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/stretchr/testify/require"
)

// scripted is a provider whose answer is computed by fn.
type scripted struct {
	name  string
	fn    func(ctx context.Context, playerID string, valid []string) (domain.AIDecision, error)
	calls atomic.Int32

	mu   sync.Mutex
	seen []domain.Snapshot
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Capabilities() domain.Capabilities { return domain.Capabilities{} }

func (s *scripted) MakeDecision(ctx context.Context, snap domain.Snapshot, playerID string, valid []string) (domain.AIDecision, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, snap)
	s.mu.Unlock()
	return s.fn(ctx, playerID, valid)
}

// chooser always answers with actionType, valid or not.
func chooser(name, actionType string) *scripted {
	return &scripted{
		name: name,
		fn: func(_ context.Context, playerID string, _ []string) (domain.AIDecision, error) {
			return domain.NewDecision(domain.NewAction(playerID, actionType, nil), "scripted", 0.5), nil
		},
	}
}

// sleeper answers after d, ignoring cancellation.
func sleeper(name string, d time.Duration) *scripted {
	return &scripted{
		name: name,
		fn: func(_ context.Context, playerID string, valid []string) (domain.AIDecision, error) {
			time.Sleep(d)
			return domain.NewDecision(domain.NewAction(playerID, valid[0], nil), "late", 1), nil
		},
	}
}

// recorder collects hook callbacks.
type recorder struct {
	mu        sync.Mutex
	events    []domain.Event
	decisions []domain.DecisionEvent
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvent: func(_ context.Context, e domain.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		},
		OnDecision: func(_ context.Context, e domain.DecisionEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.decisions = append(r.decisions, e)
		},
	}
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func eventTypes(snap domain.Snapshot) []domain.EventType {
	out := make([]domain.EventType, 0, len(snap.Events))
	for _, e := range snap.Events {
		out = append(out, e.Type)
	}
	return out
}

func ai(id, provider string) domain.Player {
	return domain.Player{ID: id, Source: domain.SourceAI, Provider: provider}
}

func human(id string) domain.Player {
	return domain.Player{ID: id, Source: domain.SourceHuman}
}

// dilemma creates and starts a two-round prisoners_dilemma.
func dilemma(t *testing.T, eng *runtime.Engine, cfg domain.GameConfig, players ...domain.Player) domain.Snapshot {
	t.Helper()
	ctx := context.Background()
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 2
	}
	snap, err := eng.CreateSession(ctx, games.TypePrisonersDilemma, cfg)
	require.NoError(t, err)
	snap, err = eng.StartSession(ctx, snap.SessionID, players)
	require.NoError(t, err)
	return snap
}
