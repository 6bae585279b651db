// Package ollama implements an AI provider backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

const (
	DefaultEndpoint = "http://localhost:11434"
	DefaultModel    = "llama3.2"
)

// Config configures the provider.
type Config struct {
	Endpoint   string
	Model      string
	HTTPClient *http.Client
}

// Provider asks an Ollama model to pick one of the valid actions.
type Provider struct {
	cfg Config
}

// New creates a provider, filling in defaults.
func New(cfg Config) *Provider {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return "ollama:" + p.cfg.Model }

func (p *Provider) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsReasoning:  true,
		SupportsConfidence: true,
		MaxContextLength:   4096,
		SupportsStreaming:  true,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// answer is the JSON object the model is asked to produce.
type answer struct {
	Choice     string         `json:"choice"`
	Payload    map[string]any `json:"payload,omitempty"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
}

func (p *Provider) MakeDecision(ctx context.Context, snapshot domain.Snapshot, playerID string, validActions []string) (domain.AIDecision, error) {
	prompt, err := buildPrompt(snapshot, playerID, validActions)
	if err != nil {
		return domain.AIDecision{}, domain.AIProviderError("build prompt", err)
	}

	body, err := json.Marshal(generateRequest{Model: p.cfg.Model, Prompt: prompt, Stream: false, Format: "json"})
	if err != nil {
		return domain.AIDecision{}, domain.AIProviderError("marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return domain.AIDecision{}, domain.AIProviderError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return domain.AIDecision{}, domain.AIProviderError("ollama request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.AIDecision{}, domain.AIProviderError(fmt.Sprintf("ollama status %d: %s", res.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var gen generateResponse
	if err := json.NewDecoder(res.Body).Decode(&gen); err != nil {
		return domain.AIDecision{}, domain.AIProviderError("decode ollama response", err)
	}
	var ans answer
	if err := json.Unmarshal([]byte(strings.TrimSpace(gen.Response)), &ans); err != nil {
		return domain.AIDecision{}, domain.AIProviderError("model answer is not the requested JSON", err)
	}
	if ans.Choice == "" {
		return domain.AIDecision{}, domain.AIProviderError("model answer has no choice", nil)
	}

	action := domain.NewAction(playerID, ans.Choice, ans.Payload).WithReasoning(ans.Reasoning).WithConfidence(ans.Confidence)
	return domain.NewDecision(action, ans.Reasoning, ans.Confidence), nil
}

func buildPrompt(snapshot domain.Snapshot, playerID string, validActions []string) (string, error) {
	state, err := json.MarshalIndent(snapshot.State, "", "  ")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are player %q in a game of %s (turn %d).\n", playerID, snapshot.GameType, snapshot.Turn)
	fmt.Fprintf(&b, "Current state:\n%s\n\n", state)
	fmt.Fprintf(&b, "Available choices: %s\n\n", strings.Join(validActions, ", "))
	b.WriteString(`Respond with ONLY a JSON object in this exact format:
{"choice": "one of the available choices", "payload": {}, "reasoning": "brief explanation", "confidence": 0.0}
`)
	return b.String(), nil
}
