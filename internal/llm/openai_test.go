package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/common"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{APIKey: "test-key"},
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "custom settings",
			config: Config{
				APIKey:      "test-key",
				BaseURL:     "http://localhost:1234/",
				Temperature: 0.5,
				MaxTokens:   200,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrMissingConfig))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var gotModel, gotAuth, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		gotPrompt = body.Messages[len(body.Messages)-1].Content

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"chat\",\"message\":\"oi\"}"}}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "gpt-4o-mini", "mercado 50")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"chat","message":"oi"}`, out)
	assert.Equal(t, "gpt-4o-mini", gotModel)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "mercado 50", gotPrompt)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: common.ErrProviderStatus},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: common.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "m", "p")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewCompleter(t *testing.T) {
	_, err := NewCompleter(context.Background(), Config{Provider: "anthropic", APIKey: "k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))

	_, err = NewCompleter(context.Background(), Config{Provider: "gemini"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))

	c, err := NewCompleter(context.Background(), Config{Provider: "openai", APIKey: "k", RateLimit: 60, CacheTTL: time.Minute})
	require.NoError(t, err)
	cached, ok := c.(*CachedCompleter)
	require.True(t, ok)
	_, ok = cached.next.(*RateLimited)
	assert.True(t, ok)
	assert.NoError(t, Close(c))
}
