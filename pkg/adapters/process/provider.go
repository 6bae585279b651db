// Package process implements an AI provider that runs an external program
// for every decision. The program receives the game view as JSON on stdin
// and answers with a JSON object on stdout:
//
//	{"choice": "defect", "payload": {}, "reasoning": "...", "confidence": 0.8}
//
// Only commands declared in the bots file are executed; nothing from the
// game view reaches the command line.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

const (
	// maxOutput bounds the stdout accepted from a bot.
	maxOutput = 64 << 10
	// waitDelay bounds how long pipes may stay open after the bot is killed.
	waitDelay = time.Second
)

// Provider runs a registered bot program.
type Provider struct {
	bot     BotConfig
	baseDir string
}

type Option func(*Provider)

// WithBaseDir sets the working directory of the bot process.
func WithBaseDir(dir string) Option {
	return func(p *Provider) {
		p.baseDir = dir
	}
}

// New creates a provider for bot.
func New(bot BotConfig, opts ...Option) *Provider {
	p := &Provider{bot: bot}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "process:" + p.bot.Name }

func (p *Provider) Capabilities() domain.Capabilities {
	return domain.Capabilities{SupportsReasoning: true, SupportsConfidence: true}
}

// View is what a bot reads on stdin.
type View struct {
	SessionID    string          `json:"session_id"`
	GameType     domain.GameType `json:"game_type"`
	PlayerID     string          `json:"player_id"`
	Turn         int             `json:"turn"`
	Players      []string        `json:"players"`
	Eliminated   []string        `json:"eliminated,omitempty"`
	ValidActions []string        `json:"valid_actions"`
	State        any             `json:"state,omitempty"`
}

type answer struct {
	Choice     string         `json:"choice"`
	Payload    map[string]any `json:"payload,omitempty"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
}

func (p *Provider) MakeDecision(ctx context.Context, snapshot domain.Snapshot, playerID string, validActions []string) (domain.AIDecision, error) {
	view := View{
		SessionID:    snapshot.SessionID,
		GameType:     snapshot.GameType,
		PlayerID:     playerID,
		Turn:         snapshot.Turn,
		Eliminated:   snapshot.Eliminated,
		ValidActions: validActions,
		State:        snapshot.State,
	}
	for _, pl := range snapshot.Players {
		view.Players = append(view.Players, pl.ID)
	}
	input, err := json.Marshal(view)
	if err != nil {
		return domain.AIDecision{}, domain.AIProviderError("marshal game view", err)
	}

	cmd := exec.CommandContext(ctx, p.bot.Command, p.bot.Args...)
	cmd.Dir = p.baseDir
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = cmd.Environ()
	for k, v := range p.bot.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env,
		"GENIUS_SESSION_ID="+snapshot.SessionID,
		"GENIUS_PLAYER_ID="+playerID,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return domain.AIDecision{}, domain.AIProviderError("bot "+p.bot.Name+" interrupted", ctx.Err())
		}
		detail := fmt.Sprintf("bot %s failed: %s", p.bot.Name, strings.TrimSpace(stderr.String()))
		return domain.AIDecision{}, domain.AIProviderError(detail, err)
	}
	if stdout.Len() > maxOutput {
		return domain.AIDecision{}, domain.AIProviderError(fmt.Sprintf("bot %s wrote more than %d bytes", p.bot.Name, maxOutput), nil)
	}

	var ans answer
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &ans); err != nil {
		return domain.AIDecision{}, domain.AIProviderError("bot "+p.bot.Name+" answer is not JSON", err)
	}
	if ans.Choice == "" {
		return domain.AIDecision{}, domain.AIProviderError("bot "+p.bot.Name+" answer has no choice", nil)
	}

	action := domain.NewAction(playerID, ans.Choice, ans.Payload).WithReasoning(ans.Reasoning).WithConfidence(ans.Confidence)
	return domain.NewDecision(action, ans.Reasoning, ans.Confidence), nil
}
