package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/runtime"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/provider"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance_AppliesProviderDecision(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(runtime.WithLifecycleHooks(rec.hooks()))
	ctx := context.Background()
	snap := dilemma(t, eng, domain.GameConfig{}, ai("a", "mock"), human("b"))

	out, err := eng.Advance(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.NoError(t, out.Err)
	require.NotNil(t, out.Action)
	assert.Equal(t, "a", out.Action.PlayerID)
	assert.Equal(t, "cooperate", out.Action.Type)
	require.NotNil(t, out.Action.Confidence)
	assert.Equal(t, 1.0, *out.Action.Confidence)
	assert.Equal(t, "b", out.Snapshot.TurnOwner)

	rec.mu.Lock()
	require.Len(t, rec.decisions, 1)
	assert.Equal(t, domain.GameType("prisoners_dilemma"), rec.decisions[0].GameType)
	rec.mu.Unlock()
}

func TestAdvance_HumanTurnWaits(t *testing.T) {
	eng := runtime.NewEngine()
	snap := dilemma(t, eng, domain.GameConfig{}, human("a"), ai("b", "mock"))

	out, err := eng.Advance(context.Background(), snap.SessionID)
	require.NoError(t, err)
	assert.True(t, out.Waiting)
	assert.Equal(t, 0, out.Snapshot.Turn)
	assert.Equal(t, "a", out.Snapshot.TurnOwner)
}

func TestAdvance_ActionOutsideValidSetIsInvalid(t *testing.T) {
	liar := chooser("liar", "fold")
	eng := runtime.NewEngine(runtime.WithProvider(liar))
	ctx := context.Background()
	snap := dilemma(t, eng, domain.GameConfig{}, ai("a", "liar"), human("b"))

	out, err := eng.Advance(ctx, snap.SessionID)
	require.NoError(t, err, "the policy recovers the turn")
	assert.ErrorIs(t, out.Err, domain.ErrInvalidAction)
	assert.Equal(t, domain.PolicyForfeitTurn, out.Policy)
	assert.Nil(t, out.Action)

	// Forfeit plays the rules' default, a defection, and the turn moves on.
	assert.Equal(t, "b", out.Snapshot.TurnOwner)
	assert.Equal(t, 1, out.Snapshot.Turn)
	types := eventTypes(out.Snapshot)
	assert.Contains(t, types, domain.EventProviderError)
	assert.Contains(t, types, domain.EventTurnForfeited)
	last := out.Snapshot.Events[len(out.Snapshot.Events)-1]
	assert.Equal(t, domain.EventActionApplied, last.Type)
	assert.Equal(t, "defect", last.Action)
}

func TestAdvance_ProviderAnsweringForSomeoneElse(t *testing.T) {
	imposter := &scripted{
		name: "imposter",
		fn: func(_ context.Context, _ string, valid []string) (domain.AIDecision, error) {
			return domain.NewDecision(domain.NewAction("b", valid[0], nil), "", 1), nil
		},
	}
	eng := runtime.NewEngine(runtime.WithProvider(imposter))
	snap := dilemma(t, eng, domain.GameConfig{}, ai("a", "imposter"), human("b"))

	out, err := eng.Advance(context.Background(), snap.SessionID)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Err, domain.ErrInvalidAction)
}

func TestAdvance_TimeoutIsBoundedAndEliminates(t *testing.T) {
	slow := sleeper("slow", 500*time.Millisecond)
	eng := runtime.NewEngine(runtime.WithProvider(slow))
	cfg := domain.GameConfig{
		TurnTimeout:   50 * time.Millisecond,
		GracePeriod:   time.Second,
		TimeoutPolicy: domain.PolicyEliminatePlayer,
	}
	snap := dilemma(t, eng, cfg, ai("a", "slow"), human("b"))

	start := time.Now()
	out, err := eng.Advance(context.Background(), snap.SessionID)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 300*time.Millisecond, "grace must not widen the decision wait")
	var ge *domain.GameError
	require.ErrorAs(t, out.Err, &ge)
	assert.Equal(t, domain.KindTurnTimeout, ge.Kind)
	assert.Equal(t, "a", ge.PlayerID)
	assert.Equal(t, domain.PolicyEliminatePlayer, out.Policy)

	require.Equal(t, domain.StatusEnded, out.Snapshot.Status)
	assert.Equal(t, []string{"b"}, out.Snapshot.Result.Winners)
	assert.Equal(t, []string{"a"}, out.Snapshot.Eliminated)
	types := eventTypes(out.Snapshot)
	assert.Contains(t, types, domain.EventTurnTimeout)
	assert.Contains(t, types, domain.EventPlayerEliminated)
}

func TestAdvance_ProviderErrorAborts(t *testing.T) {
	broken := provider.NewMock(provider.WithName("broken"), provider.WithError(errors.New("model offline")))
	eng := runtime.NewEngine(runtime.WithProvider(broken))
	snap := dilemma(t, eng, domain.GameConfig{TimeoutPolicy: domain.PolicyAbortSession}, ai("a", "broken"), human("b"))

	out, err := eng.Advance(context.Background(), snap.SessionID)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Err, domain.ErrAIProvider)
	require.Equal(t, domain.StatusEnded, out.Snapshot.Status)
	require.NotNil(t, out.Snapshot.Result.Error)
	assert.Equal(t, domain.KindAIProviderError, out.Snapshot.Result.Error.Kind)
	assert.Contains(t, eventTypes(out.Snapshot), domain.EventProviderError)
}

func TestAdvance_RawProviderErrorIsWrapped(t *testing.T) {
	raw := &scripted{
		name: "raw",
		fn: func(context.Context, string, []string) (domain.AIDecision, error) {
			return domain.AIDecision{}, errors.New("socket closed")
		},
	}
	rec := &recorder{}
	eng := runtime.NewEngine(runtime.WithProvider(raw), runtime.WithLifecycleHooks(rec.hooks()))
	snap := dilemma(t, eng, domain.GameConfig{}, ai("a", "raw"), human("b"))

	out, err := eng.Advance(context.Background(), snap.SessionID)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Err, domain.ErrAIProvider)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.decisions, 1)
	assert.ErrorIs(t, rec.decisions[0].Err, domain.ErrAIProvider)
}

func TestAdvance_CallerCancellationKeepsTurn(t *testing.T) {
	slow := sleeper("slow", 200*time.Millisecond)
	eng := runtime.NewEngine(runtime.WithProvider(slow))
	snap := dilemma(t, eng, domain.GameConfig{TurnTimeout: 5 * time.Second}, ai("a", "slow"), human("b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := eng.Advance(ctx, snap.SessionID)
	assert.ErrorIs(t, err, domain.ErrIo)

	state, err := eng.GetState(context.Background(), snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "a", state.TurnOwner)
	assert.Equal(t, 0, state.Turn)
	assert.NotContains(t, eventTypes(state), domain.EventTurnForfeited)
}

func TestAdvance_ExpiredHumanTurnForfeits(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	eng := runtime.NewEngine(runtime.WithClock(clock))
	snap := dilemma(t, eng, domain.GameConfig{TurnTimeout: 10 * time.Second, GracePeriod: 5 * time.Second}, human("a"), human("b"))
	ctx := context.Background()

	// Past the timeout but inside the grace period nothing happens.
	mu.Lock()
	now = now.Add(12 * time.Second)
	mu.Unlock()
	swept, err := eng.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	mu.Lock()
	now = now.Add(4 * time.Second)
	mu.Unlock()
	swept, err = eng.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	state, err := eng.GetState(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "b", state.TurnOwner)
	types := eventTypes(state)
	assert.Contains(t, types, domain.EventTurnTimeout)
	assert.Contains(t, types, domain.EventTurnForfeited)
}

func TestRun_MixedSession(t *testing.T) {
	eng := runtime.NewEngine()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := dilemma(t, eng, domain.GameConfig{}, ai("bot", "mock"), human("h"))

	diffs, unsubscribe, err := eng.Subscribe(ctx, snap.SessionID)
	require.NoError(t, err)
	defer unsubscribe()

	// The human defects whenever the turn comes around.
	go func() {
		for diff := range diffs {
			if diff.TurnOwner != nil && *diff.TurnOwner == "h" {
				_, _ = eng.SubmitAction(ctx, snap.SessionID, domain.NewAction("h", "defect", nil))
			}
		}
	}()

	res, err := eng.Run(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"h"}, res.Winners)
	assert.Equal(t, map[string]int{"bot": 0, "h": 10}, res.FinalScores)
}

func TestRun_NotStarted(t *testing.T) {
	eng := runtime.NewEngine()
	snap, err := eng.CreateSession(context.Background(), "prisoners_dilemma", domain.GameConfig{})
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), snap.SessionID)
	assert.ErrorIs(t, err, domain.ErrGameNotStarted)
}

func TestRun_EveryGamePlaysToTheEndWithMocks(t *testing.T) {
	for _, def := range games.DefaultCatalog().List() {
		t.Run(string(def.Type), func(t *testing.T) {
			eng := runtime.NewEngine()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			snap, err := eng.CreateSession(ctx, def.Type, domain.GameConfig{})
			require.NoError(t, err)
			n := max(def.Defaults.MinPlayers, 3)
			players := make([]domain.Player, 0, n)
			for i := range n {
				players = append(players, ai(fmt.Sprintf("bot%d", i), "mock"))
			}
			_, err = eng.StartSession(ctx, snap.SessionID, players)
			require.NoError(t, err)

			res, err := eng.Run(ctx, snap.SessionID)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Nil(t, res.Error, "ended by %v", res.Error)

			final, err := eng.GetState(ctx, snap.SessionID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusEnded, final.Status)
		})
	}
}

func TestRun_LiarsDiceWithMocksEnds(t *testing.T) {
	eng := runtime.NewEngine()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := eng.CreateSession(ctx, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "1", "dice": "1"}})
	require.NoError(t, err)
	_, err = eng.StartSession(ctx, snap.SessionID, []domain.Player{ai("a", "mock"), ai("b", "mock")})
	require.NoError(t, err)

	res, err := eng.Run(ctx, snap.SessionID)
	require.NoError(t, err)
	require.Len(t, res.Winners, 1)
	assert.Nil(t, res.Error)

	final, err := eng.GetState(ctx, snap.SessionID)
	require.NoError(t, err)
	st := final.State.(*games.DiceState)
	require.Len(t, st.Challenges, 1, "mocks raise to the ceiling, then the forced call settles it")
	assert.Equal(t, games.Bid{Player: "b", Quantity: 2, Face: 6}, st.Challenges[0].Bid)
}

func TestAdvance_ProviderSeesOnlyItsOwnView(t *testing.T) {
	first := &scripted{
		name: "first",
		fn: func(_ context.Context, playerID string, valid []string) (domain.AIDecision, error) {
			return domain.NewDecision(domain.NewAction(playerID, valid[0], nil), "first", 1), nil
		},
	}
	eng := runtime.NewEngine(runtime.WithProvider(first))
	ctx := context.Background()

	snap, err := eng.CreateSession(ctx, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "2"}})
	require.NoError(t, err)
	_, err = eng.StartSession(ctx, snap.SessionID, []domain.Player{ai("a", "first"), human("b")})
	require.NoError(t, err)

	_, err = eng.Advance(ctx, snap.SessionID)
	require.NoError(t, err)

	first.mu.Lock()
	defer first.mu.Unlock()
	require.Len(t, first.seen, 1)
	st, ok := first.seen[0].State.(*games.DiceState)
	require.True(t, ok)
	assert.Len(t, st.Cups["a"], 5)
	assert.NotContains(t, st.Cups, "b", "the other cup stays hidden")
	assert.Empty(t, first.seen[0].Events)

	full, err := eng.GetState(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Len(t, full.State.(*games.DiceState).Cups["b"], 5, "the session keeps the full state")
}
