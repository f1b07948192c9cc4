package inspect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedscout/pkg/config"
	"github.com/umputun/feedscout/pkg/domain"
)

func TestLLMInspector_Inspect(t *testing.T) {
	newCfg := func(endpoint string) config.InspectionConfig {
		return config.InspectionConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
			LLM: config.LLMConfig{
				Enabled:  true,
				Endpoint: endpoint,
				APIKey:   "test-key",
				Model:    "gpt-4.1-mini",
				Timeout:  5 * time.Second,
			},
		}
	}

	t.Run("parses numeric rating", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "0.85"}}]}`))
		}))
		defer server.Close()

		inspector := NewLLMInspector(newCfg(server.URL))
		cand := domain.CandidateSource{Identity: "alice", Kind: domain.KindSocial}

		score, err := inspector.Inspect(context.Background(), cand, []string{"ai agents"})
		require.NoError(t, err)
		assert.InDelta(t, 0.85, score, 0.0001)
	})

	t.Run("non-numeric response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "quite relevant"}}]}`))
		}))
		defer server.Close()

		inspector := NewLLMInspector(newCfg(server.URL))
		cand := domain.CandidateSource{Identity: "alice", Kind: domain.KindSocial}

		_, err := inspector.Inspect(context.Background(), cand, []string{"ai agents"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse llm score")
	})

	t.Run("server error propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		inspector := NewLLMInspector(newCfg(server.URL))
		cand := domain.CandidateSource{Identity: "alice", Kind: domain.KindSocial}

		_, err := inspector.Inspect(context.Background(), cand, []string{"ai agents"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm request failed")
	})

	t.Run("empty interests score zero without request", func(t *testing.T) {
		inspector := NewLLMInspector(newCfg("http://127.0.0.1:1"))
		cand := domain.CandidateSource{Identity: "alice", Kind: domain.KindSocial}

		score, err := inspector.Inspect(context.Background(), cand, nil)
		require.NoError(t, err)
		assert.Zero(t, score)
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr bool
	}{
		{name: "plain number", content: "0.73", want: 0.73},
		{name: "whitespace trimmed", content: " 0.5\n", want: 0.5},
		{name: "boundaries", content: "1.0", want: 1.0},
		{name: "zero", content: "0", want: 0},
		{name: "above one", content: "1.5", wantErr: true},
		{name: "negative", content: "-0.2", wantErr: true},
		{name: "not a number", content: "high", wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScore(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}
