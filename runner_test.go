package genius_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startMixed(t *testing.T, eng *genius.Engine) string {
	t.Helper()
	ctx := context.Background()
	snap, err := eng.CreateSession(ctx, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 1})
	require.NoError(t, err)
	_, err = eng.StartSession(ctx, snap.SessionID, []domain.Player{
		{ID: "alice", Source: domain.SourceHuman},
		{ID: "bot", Source: domain.SourceAI, Provider: "mock"},
	})
	require.NoError(t, err)
	return snap.SessionID
}

func TestRunner_PlaysUntilEnd(t *testing.T) {
	eng, err := genius.New()
	require.NoError(t, err)
	id := startMixed(t, eng)

	var out bytes.Buffer
	r := genius.NewRunner(strings.NewReader("bogus\n\ncooperate\n"), &out)

	res, err := r.Run(context.Background(), eng, id, "alice")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Contains(t, res.FinalScores, "alice")
	assert.Contains(t, out.String(), "rejected:")
	assert.Contains(t, out.String(), "`cooperate`")
	assert.Contains(t, out.String(), "Game over")
}

func TestRunner_QuitLeavesSessionRunning(t *testing.T) {
	eng, err := genius.New()
	require.NoError(t, err)
	id := startMixed(t, eng)

	var out bytes.Buffer
	r := genius.NewRunner(strings.NewReader("quit\n"), &out)
	r.Headless = true

	res, err := r.Run(context.Background(), eng, id, "alice")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.NotContains(t, out.String(), "Valid actions")

	snap, err := eng.GetState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, snap.Status)
}

func TestRunner_RendererAppliesToOutput(t *testing.T) {
	eng, err := genius.New()
	require.NoError(t, err)
	id := startMixed(t, eng)

	var out bytes.Buffer
	r := genius.NewRunner(strings.NewReader("defect\n"), &out)
	r.Renderer = func(s string) (string, error) { return strings.ToUpper(s), nil }

	_, err = r.Run(context.Background(), eng, id, "alice")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "GAME OVER")
}

func TestRunner_RequiresIO(t *testing.T) {
	eng, err := genius.New()
	require.NoError(t, err)

	_, err = (&genius.Runner{}).Run(context.Background(), eng, "x", "alice")
	assert.Error(t, err)
}
