package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/model"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "N8N_WEBHOOK_URL", "SPICE_RELAY_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)

	c, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, model.DefaultParticipants(), c.Household.Participants)
	assert.Equal(t, []string{"Bento", "Nego"}, c.Household.Pets)
	assert.Equal(t, "America/Sao_Paulo", c.Location.String())
	assert.Equal(t, "gemini", c.LLM.Provider)
	assert.Equal(t, llm.DefaultGeminiModels(), c.LLM.Models)
	assert.Equal(t, 25*time.Second, c.Relay.Timeout)
	assert.Equal(t, uint32(3), c.Relay.FailureThreshold)
	assert.True(t, c.Heuristic)
	assert.False(t, c.RelayEnabled())
	assert.False(t, c.SecondaryEnabled())
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 90*time.Second, c.Server.RequestTimeout)
}

func TestLoad_EnvFallbacks(t *testing.T) {
	tests := []struct {
		env       map[string]string
		set       map[string]any
		name      string
		wantKey   string
		wantRelay string
	}{
		{
			name:      "gemini key and relay url",
			env:       map[string]string{"GEMINI_API_KEY": "g-key", "N8N_WEBHOOK_URL": "https://n8n.example.com/webhook/x"},
			wantKey:   "g-key",
			wantRelay: "https://n8n.example.com/webhook/x",
		},
		{
			name:    "openai key follows the provider",
			env:     map[string]string{"GEMINI_API_KEY": "g-key", "OPENAI_API_KEY": "o-key"},
			set:     map[string]any{"llm.provider": "openai"},
			wantKey: "o-key",
		},
		{
			name:    "named key variable",
			env:     map[string]string{"MY_KEY": "custom"},
			set:     map[string]any{"llm.api_key_env": "MY_KEY"},
			wantKey: "custom",
		},
		{
			name:    "explicit key wins",
			env:     map[string]string{"GEMINI_API_KEY": "g-key"},
			set:     map[string]any{"llm.api_key": "explicit"},
			wantKey: "explicit",
		},
		{
			name:      "prefixed relay variable wins",
			env:       map[string]string{"SPICE_RELAY_URL": "https://a.example.com", "N8N_WEBHOOK_URL": "https://b.example.com"},
			wantRelay: "https://a.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}

			c, err := Load(v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, c.LLM.APIKey)
			assert.Equal(t, tt.wantRelay, c.Relay.URL)
		})
	}
}

func TestLoad_PlaceholderRelayIsDisabled(t *testing.T) {
	clearProviderEnv(t)
	v := viper.New()
	v.Set("relay.url", "https://seu-n8n.com/webhook/abc")

	c, err := Load(v)
	require.NoError(t, err)
	assert.False(t, c.RelayEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		set     map[string]any
		wantErr error
		name    string
	}{
		{name: "same participants", set: map[string]any{"household.participant_b": "douglas"}, wantErr: common.ErrInvalidConfig},
		{name: "missing participant", set: map[string]any{"household.participant_a": " "}, wantErr: common.ErrInvalidConfig},
		{name: "unknown provider", set: map[string]any{"llm.provider": "llama"}, wantErr: common.ErrInvalidConfig},
		{name: "zero timeout", set: map[string]any{"relay.timeout": "0s"}, wantErr: common.ErrInvalidConfig},
		{name: "bad log level", set: map[string]any{"logging.level": "loud"}, wantErr: common.ErrInvalidConfig},
		{name: "bad log format", set: map[string]any{"logging.format": "xml"}, wantErr: common.ErrInvalidConfig},
		{name: "bad timezone", set: map[string]any{"timezone": "Mars/Olympus"}, wantErr: common.ErrInvalidConfig},
		{name: "audit without path", set: map[string]any{"audit.enabled": true, "audit.path": ""}, wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPromptBuilderConfig(t *testing.T) {
	clearProviderEnv(t)
	path := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(path, []byte("Você é um assistente."), 0o600))

	v := viper.New()
	v.Set("prompt.system_file", path)
	v.Set("household.pets", []string{"Rex"})
	c, err := Load(v)
	require.NoError(t, err)

	pc, err := c.PromptBuilderConfig()
	require.NoError(t, err)
	assert.Equal(t, "Você é um assistente.", pc.SystemOverride)
	assert.Equal(t, []string{"Rex"}, pc.Pets)

	c.Prompt.SystemFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = c.PromptBuilderConfig()
	assert.Error(t, err)
}

func TestConverters(t *testing.T) {
	clearProviderEnv(t)
	v := viper.New()
	v.Set("llm.api_key", "k")
	v.Set("relay.url", "https://relay.example.com")
	c, err := Load(v)
	require.NoError(t, err)

	assert.True(t, c.SecondaryEnabled())
	assert.True(t, c.RelayEnabled())
	assert.Equal(t, "k", c.CompleterConfig().APIKey)
	assert.Equal(t, 10*time.Minute, c.CompleterConfig().CacheTTL)
	assert.Equal(t, "https://relay.example.com", c.RelayClientConfig().URL)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICE_TEST_DIR", "/var/spice")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/audit.db", want: filepath.Join(home, "audit.db")},
		{in: "$SPICE_TEST_DIR/audit.db", want: "/var/spice/audit.db"},
		{in: "/abs/path", want: "/abs/path"},
		{in: "  ~/prompt.txt ", want: filepath.Join(home, "prompt.txt")},
		{in: "~other/audit.db", want: "~other/audit.db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
