package games_test

import (
	"testing"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, gameType domain.GameType, override domain.GameConfig, ids ...string) *session.Session {
	t.Helper()
	c := games.DefaultCatalog()
	def, ok := c.Lookup(gameType)
	require.True(t, ok)
	cfg := def.Defaults.Merge(override)
	rules, err := c.Rules(gameType, cfg)
	require.NoError(t, err)

	s := session.New("test", cfg, rules)
	seats := make([]session.Seat, 0, len(ids))
	for _, id := range ids {
		seats = append(seats, session.Seat{Player: domain.Player{ID: id}, Source: ports.Human()})
	}
	require.NoError(t, s.Start(seats))
	return s
}

func act(t *testing.T, s *session.Session, actionType string, payload map[string]any) {
	t.Helper()
	seat, ok := s.TurnOwner()
	require.True(t, ok)
	require.NoError(t, s.ApplyAction(domain.NewAction(seat.Player.ID, actionType, payload)))
}

// playOut drives the session with the first valid action of every turn.
func playOut(t *testing.T, s *session.Session, limit int) *domain.GameResult {
	t.Helper()
	for i := 0; i < limit && s.Status() == domain.StatusInProgress; i++ {
		seat, ok := s.TurnOwner()
		require.True(t, ok)
		valid := s.ValidActions()
		require.NotEmpty(t, valid)
		require.NoError(t, s.ApplyAction(domain.NewAction(seat.Player.ID, valid[0], nil)))
	}
	res, ok := s.Result()
	require.True(t, ok, "game did not end within %d turns", limit)
	return res
}

func TestPrisonersDilemma_Payoffs(t *testing.T) {
	s := newSession(t, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 2}, "a", "b")

	act(t, s, "cooperate", nil)
	st := s.Snapshot().State.(*games.DilemmaState)
	assert.Equal(t, 0, st.Round, "round resolves only after everyone committed")
	assert.Equal(t, "b", s.Snapshot().TurnOwner)

	act(t, s, "defect", nil)
	st = s.Snapshot().State.(*games.DilemmaState)
	assert.Equal(t, map[string]int{"a": 0, "b": 5}, st.Scores)

	act(t, s, "cooperate", nil)
	act(t, s, "cooperate", nil)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 3, "b": 8}, res.FinalScores)
	assert.Equal(t, []string{"b"}, res.Winners)
}

func TestPrisonersDilemma_PairwiseAndDoubleCommit(t *testing.T) {
	s := newSession(t, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 1}, "a", "b", "c")

	act(t, s, "defect", nil)
	err := s.ApplyAction(domain.NewAction("a", "cooperate", nil))
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	act(t, s, "defect", nil)
	act(t, s, "defect", nil)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 2}, res.FinalScores)
	assert.Equal(t, []string{"a", "b", "c"}, res.Winners)
}

func TestPrisonersDilemma_ForfeitDefects(t *testing.T) {
	s := newSession(t, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 1}, "a", "b")

	act(t, s, "cooperate", nil)
	require.NoError(t, s.ForfeitTurn("b", domain.TurnTimeout("b")))

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 5, res.FinalScores["b"])
}

func TestLiarsDice_BidAndCall(t *testing.T) {
	s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "7", "dice": "2"}}, "a", "b")

	assert.Equal(t, []string{"bid"}, s.ValidActions(), "call needs a bid on the table")

	err := s.ApplyAction(domain.NewAction("a", "bid", map[string]any{"quantity": 9.0, "face": 3.0}))
	assert.ErrorIs(t, err, domain.ErrInvalidAction, "more dice than on the table")

	err = s.ApplyAction(domain.NewAction("a", "bid", map[string]any{"quantity": 1, "face": 7}))
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	err = s.ApplyAction(domain.NewAction("a", "bid", map[string]any{"quantity": 1, "colour": "red"}))
	assert.ErrorIs(t, err, domain.ErrInvalidAction, "unknown payload keys are rejected")

	act(t, s, "bid", map[string]any{"quantity": 2.0, "face": 4.0})
	st := s.Snapshot().State.(*games.DiceState)
	require.NotNil(t, st.CurrentBid)
	assert.Equal(t, games.Bid{Player: "a", Quantity: 2, Face: 4}, *st.CurrentBid)

	err = s.ApplyAction(domain.NewAction("b", "bid", map[string]any{"quantity": 1, "face": 6}))
	assert.ErrorIs(t, err, domain.ErrInvalidAction, "a bid must raise")

	assert.Equal(t, []string{"bid", "call"}, s.ValidActions())
	act(t, s, "call", nil)

	st = s.Snapshot().State.(*games.DiceState)
	require.Len(t, st.Challenges, 1)
	ch := st.Challenges[0]
	assert.Equal(t, "b", ch.Challenger)
	if ch.Actual < 2 {
		assert.Equal(t, "a", ch.Loser)
	} else {
		assert.Equal(t, "b", ch.Loser)
	}
	assert.Equal(t, 3, st.DiceCount["a"]+st.DiceCount["b"])
	assert.Nil(t, st.CurrentBid)
}

func TestLiarsDice_EmptyBidIsMinimumRaise(t *testing.T) {
	s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "1"}}, "a", "b")

	act(t, s, "bid", nil)
	act(t, s, "bid", nil)

	st := s.Snapshot().State.(*games.DiceState)
	assert.Equal(t, games.Bid{Player: "b", Quantity: 1, Face: 3}, *st.CurrentBid)
}

func TestLiarsDice_PlaysToTheEnd(t *testing.T) {
	s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "3", "dice": "1"}}, "a", "b")

	// With one die each, the first call decides the game.
	act(t, s, "bid", nil)
	act(t, s, "call", nil)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Len(t, res.Winners, 1)
}

func TestLiarsDice_CeilingBidLeavesOnlyCall(t *testing.T) {
	s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "1", "dice": "1"}}, "a", "b")

	act(t, s, "bid", map[string]any{"quantity": 2, "face": 6})
	assert.Equal(t, []string{"call"}, s.ValidActions(), "no bid fits above 2x6 with two dice")

	def, ok := games.DefaultCatalog().Lookup(games.TypeLiarsDice)
	require.True(t, ok)
	rules, err := def.New(def.Defaults)
	require.NoError(t, err)
	action, ok := rules.(ports.Forfeiter).DefaultAction(s.Snapshot().State.(domain.GameState), "b")
	require.True(t, ok)
	assert.Equal(t, "call", action.Type)

	require.NoError(t, s.ForfeitTurn("b", domain.TurnTimeout("b")))
	assert.Equal(t, domain.StatusEnded, s.Status(), "the forced call decides a one-die game")
}

func TestLiarsDice_FirstChoicePlayEnds(t *testing.T) {
	s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "1", "dice": "2"}}, "a", "b", "c")

	res := playOut(t, s, 2000)
	assert.NotEmpty(t, res.Winners)
	assert.Nil(t, res.Error)
}

func TestMinorityGame_MinorityScores(t *testing.T) {
	s := newSession(t, games.TypeMinorityGame, domain.GameConfig{MaxRounds: 1}, "a", "b", "c")

	act(t, s, "zero", nil)
	act(t, s, "one", nil)
	act(t, s, "one", nil)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 10, "b": -5, "c": -5}, res.FinalScores)
	assert.Equal(t, []string{"a"}, res.Winners)
}

func TestMinorityGame_ScoreLimitEndsEarly(t *testing.T) {
	s := newSession(t, games.TypeMinorityGame, domain.GameConfig{
		MaxRounds: 50,
		Rules:     map[string]string{"win_score": "10"},
	}, "a", "b", "c")

	act(t, s, "one", nil)
	act(t, s, "zero", nil)
	act(t, s, "zero", nil)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, res.Winners)
}

func TestRussianRoulette_LastSurvivorWins(t *testing.T) {
	s := newSession(t, games.TypeRussianRoulette, domain.GameConfig{Rules: map[string]string{"seed": "42", "passes": "0"}}, "a", "b", "c")

	res := playOut(t, s, 100)

	require.Len(t, res.Winners, 1)
	assert.Equal(t, 3, res.FinalScores[res.Winners[0]])
	snap := s.Snapshot()
	st := snap.State.(*games.RouletteState)
	assert.Len(t, st.Deaths, 2)
}

func TestRussianRoulette_DeadPlayersAreSkipped(t *testing.T) {
	s := newSession(t, games.TypeRussianRoulette, domain.GameConfig{Rules: map[string]string{"seed": "5", "chambers": "1", "bullets": "1"}}, "a", "b", "c")

	// A single loaded chamber kills whoever pulls.
	act(t, s, "pull", nil)
	assert.Equal(t, "b", s.Snapshot().TurnOwner)
	act(t, s, "pass", nil)
	act(t, s, "pass", nil)

	assert.Equal(t, "b", s.Snapshot().TurnOwner, "a is dead and has no actions")
}

func TestCollectiveMaze_GroupEscapes(t *testing.T) {
	s := newSession(t, games.TypeCollectiveMaze, domain.GameConfig{Rules: map[string]string{"seed": "9", "size": "4"}}, "a", "b")

	res := playOut(t, s, 200)

	assert.Equal(t, []string{"a", "b"}, res.Winners)
	assert.Equal(t, "the group escaped together", res.Outcome)
}

func TestCollectiveMaze_RejectsWalkingOffTheGrid(t *testing.T) {
	s := newSession(t, games.TypeCollectiveMaze, domain.GameConfig{Rules: map[string]string{"seed": "9"}}, "a")

	err := s.ApplyAction(domain.NewAction("a", "move", map[string]any{"direction": "north"}))
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	act(t, s, "move", map[string]any{"direction": "south"})
	st := s.Snapshot().State.(*games.MazeState)
	assert.Equal(t, games.Position{X: 0, Y: 1}, st.Agents["a"])
}

func viewer(t *testing.T, gameType domain.GameType) ports.Viewer {
	t.Helper()
	def, ok := games.DefaultCatalog().Lookup(gameType)
	require.True(t, ok)
	rules, err := def.New(def.Defaults)
	require.NoError(t, err)
	v, ok := rules.(ports.Viewer)
	require.True(t, ok, "%s rules should narrow the state per player", gameType)
	return v
}

func TestView_HidesOtherPlayersSecrets(t *testing.T) {
	t.Run("liars dice cups", func(t *testing.T) {
		s := newSession(t, games.TypeLiarsDice, domain.GameConfig{Rules: map[string]string{"seed": "5"}}, "a", "b")
		full := s.Snapshot().State.(*games.DiceState)

		seen := viewer(t, games.TypeLiarsDice).View(full, "a").(*games.DiceState)
		assert.Equal(t, full.Cups["a"], seen.Cups["a"])
		assert.NotContains(t, seen.Cups, "b")
		assert.Equal(t, full.DiceCount, seen.DiceCount, "dice counts are public")
		assert.Len(t, full.Cups["b"], 5, "the input state is untouched")
	})

	t.Run("prisoners dilemma pending choices", func(t *testing.T) {
		s := newSession(t, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 2}, "a", "b", "c")
		act(t, s, "defect", nil)
		act(t, s, "cooperate", nil)
		full := s.Snapshot().State.(*games.DilemmaState)
		v := viewer(t, games.TypePrisonersDilemma)

		assert.Empty(t, v.View(full, "c").(*games.DilemmaState).Pending)
		assert.Equal(t, map[string]string{"b": "cooperate"}, v.View(full, "b").(*games.DilemmaState).Pending)
		assert.Len(t, full.Pending, 2)
	})

	t.Run("minority game pending choices", func(t *testing.T) {
		s := newSession(t, games.TypeMinorityGame, domain.GameConfig{}, "a", "b", "c")
		act(t, s, "one", nil)
		full := s.Snapshot().State.(*games.MinorityState)

		assert.Empty(t, viewer(t, games.TypeMinorityGame).View(full, "b").(*games.MinorityState).Pending)
	})

	t.Run("russian roulette cylinder", func(t *testing.T) {
		s := newSession(t, games.TypeRussianRoulette, domain.GameConfig{}, "a", "b")
		full := s.Snapshot().State.(*games.RouletteState)

		seen := viewer(t, games.TypeRussianRoulette).View(full, "a").(*games.RouletteState)
		assert.Nil(t, seen.Cylinder)
		assert.Zero(t, seen.Position)
		assert.Len(t, full.Cylinder, 6)
	})
}
