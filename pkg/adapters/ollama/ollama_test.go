package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/ollama"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllama(t *testing.T, status int, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, false, req["stream"])
		assert.Equal(t, "json", req["format"])
		assert.Contains(t, req["prompt"], "cooperate, defect")

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": response, "done": true})
	}))
}

func TestProvider_ParsesAnswer(t *testing.T) {
	srv := fakeOllama(t, http.StatusOK, `{"choice":"defect","reasoning":"they defected last round","confidence":1.4}`)
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL + "/", Model: "test-model"})
	d, err := p.MakeDecision(context.Background(), domain.Snapshot{GameType: "prisoners_dilemma"}, "p1", []string{"cooperate", "defect"})

	require.NoError(t, err)
	assert.Equal(t, "defect", d.Action().Type)
	assert.Equal(t, "p1", d.Action().PlayerID)
	assert.Equal(t, "they defected last round", d.Reasoning())
	assert.Equal(t, 1.0, d.Confidence())
	assert.Equal(t, "ollama:test-model", p.Name())
}

func TestProvider_MalformedAnswer(t *testing.T) {
	srv := fakeOllama(t, http.StatusOK, `I think I will defect`)
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL, Model: "test-model"})
	_, err := p.MakeDecision(context.Background(), domain.Snapshot{}, "p1", []string{"cooperate", "defect"})

	assert.ErrorIs(t, err, domain.ErrAIProvider)
}

func TestProvider_HTTPError(t *testing.T) {
	srv := fakeOllama(t, http.StatusInternalServerError, "")
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL, Model: "test-model"})
	_, err := p.MakeDecision(context.Background(), domain.Snapshot{}, "p1", []string{"cooperate", "defect"})

	assert.ErrorIs(t, err, domain.ErrAIProvider)
	assert.Contains(t, err.Error(), "500")
}
