package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/process"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellBot(t *testing.T, name, script string) *process.Provider {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell bots need sh")
	}
	return process.New(process.BotConfig{
		Name:        name,
		Command:     "sh",
		Args:        []string{"-c", script},
		Environment: map[string]string{"BOT_MOOD": "grim"},
	})
}

func snapshot() domain.Snapshot {
	return domain.Snapshot{
		SessionID: "s1",
		GameType:  "prisoners_dilemma",
		Turn:      2,
		Players:   []domain.Player{{ID: "a"}, {ID: "b"}},
		State:     map[string]any{"round": 1},
	}
}

func TestProvider_Decides(t *testing.T) {
	bot := shellBot(t, "echo", `read view; echo "{\"choice\":\"defect\",\"reasoning\":\"$BOT_MOOD $GENIUS_PLAYER_ID\",\"confidence\":0.7}"`)
	assert.Equal(t, "process:echo", bot.Name())

	d, err := bot.MakeDecision(context.Background(), snapshot(), "b", []string{"cooperate", "defect"})
	require.NoError(t, err)
	assert.Equal(t, "defect", d.Action().Type)
	assert.Equal(t, "b", d.Action().PlayerID)
	assert.Equal(t, "grim b", d.Reasoning())
	assert.InDelta(t, 0.7, d.Confidence(), 1e-9)
}

func TestProvider_ReadsView(t *testing.T) {
	// Answers with the first valid action found in the view.
	bot := shellBot(t, "first", `grep -o '"valid_actions":\["[a-z]*"' | sed 's/.*\["\(.*\)"/{"choice":"\1"}/'`)

	d, err := bot.MakeDecision(context.Background(), snapshot(), "a", []string{"cooperate", "defect"})
	require.NoError(t, err)
	assert.Equal(t, "cooperate", d.Action().Type)
}

func TestProvider_Failures(t *testing.T) {
	cases := map[string]string{
		"non-zero exit": `echo boom >&2; exit 3`,
		"not json":      `echo maybe`,
		"no choice":     `echo '{"reasoning":"?"}'`,
	}
	for name, script := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := shellBot(t, name, script).MakeDecision(context.Background(), snapshot(), "a", []string{"x"})
			assert.ErrorIs(t, err, domain.ErrAIProvider)
		})
	}

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := shellBot(t, "slow", `exec sleep 5`).MakeDecision(ctx, snapshot(), "a", []string{"x"})
		assert.ErrorIs(t, err, domain.ErrAIProvider)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestLoadBots(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	bots, err := process.LoadBots("")
	require.NoError(t, err)
	assert.Empty(t, bots)

	bots, err = process.LoadBots(write("bots.yaml", "bots:\n  - name: grim\n    command: ./grim\n    args: [--strict]\n"))
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, []string{"--strict"}, bots[0].Args)

	bots, err = process.LoadBots(write("bots.json", `{"bots":[{"name":"tit","command":"./tit"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "tit", bots[0].Name)

	for name, content := range map[string]string{
		"dup.yaml":    "bots:\n  - {name: a, command: x}\n  - {name: a, command: y}\n",
		"nocmd.yaml":  "bots:\n  - name: a\n",
		"noname.yaml": "bots:\n  - command: x\n",
		"broken.json": "{",
	} {
		_, err := process.LoadBots(write(name, content))
		assert.ErrorIs(t, err, domain.ErrConfig, name)
	}
	_, err = process.LoadBots(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}
