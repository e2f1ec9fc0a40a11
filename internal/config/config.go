// Package config loads and validates spice settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // America/Sao_Paulo on hosts without zoneinfo

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/prompt"
)

// Config holds application configuration.
type Config struct {
	Location  *time.Location
	Household HouseholdConfig
	Relay     RelayConfig
	LLM       LLMConfig
	Server    ServerConfig
	Audit     AuditConfig
	Logging   LoggingConfig
	Prompt    PromptConfig
	Timezone  string
	Heuristic bool
}

// HouseholdConfig names the two participants and their pets.
type HouseholdConfig struct {
	Pets         []string
	Participants model.Participants
}

// RelayConfig configures the primary webhook relay.
type RelayConfig struct {
	URL              string
	Timeout          time.Duration
	OpenTimeout      time.Duration
	RateLimit        int
	FailureThreshold uint32
}

// LLMConfig configures the secondary completion provider.
type LLMConfig struct {
	Provider    string
	APIKeyEnv   string
	APIKey      string
	BaseURL     string
	Models      []string
	Timeout     time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	BodyLimit       int
}

// AuditConfig configures the audit journal.
type AuditConfig struct {
	Path    string
	Enabled bool
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// PromptConfig overrides the built-in system prompt.
type PromptConfig struct {
	System     string
	SystemFile string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	defaults := model.DefaultParticipants()
	v.SetDefault("household.participant_a", string(defaults.A))
	v.SetDefault("household.participant_b", string(defaults.B))
	v.SetDefault("household.pets", []string{"Bento", "Nego"})
	v.SetDefault("timezone", "America/Sao_Paulo")

	v.SetDefault("relay.url", "")
	v.SetDefault("relay.timeout", 25*time.Second)
	v.SetDefault("relay.rate_limit", 60)
	v.SetDefault("relay.failure_threshold", 3)
	v.SetDefault("relay.open_timeout", 30*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.models", llm.DefaultGeminiModels())
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("llm.cache_ttl", 10*time.Minute)
	v.SetDefault("llm.rate_limit", 30)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("pipeline.heuristic", true)
	v.SetDefault("prompt.system", "")
	v.SetDefault("prompt.system_file", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.body_limit", 64*1024)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "~/.local/share/spice/audit.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from v, applying defaults, environment
// fallbacks and validation.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("relay.url", "SPICE_RELAY_URL", "N8N_WEBHOOK_URL")

	c := Config{
		Household: HouseholdConfig{
			Participants: model.Participants{
				A: model.Payer(strings.TrimSpace(v.GetString("household.participant_a"))),
				B: model.Payer(strings.TrimSpace(v.GetString("household.participant_b"))),
			},
			Pets: v.GetStringSlice("household.pets"),
		},
		Timezone: v.GetString("timezone"),
		Relay: RelayConfig{
			URL:              strings.TrimSpace(v.GetString("relay.url")),
			Timeout:          v.GetDuration("relay.timeout"),
			RateLimit:        v.GetInt("relay.rate_limit"),
			FailureThreshold: v.GetUint32("relay.failure_threshold"),
			OpenTimeout:      v.GetDuration("relay.open_timeout"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
			APIKeyEnv:   v.GetString("llm.api_key_env"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Models:      v.GetStringSlice("llm.models"),
			Timeout:     v.GetDuration("llm.timeout"),
			CacheTTL:    v.GetDuration("llm.cache_ttl"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
		},
		Heuristic: v.GetBool("pipeline.heuristic"),
		Prompt: PromptConfig{
			System:     v.GetString("prompt.system"),
			SystemFile: ExpandPath(v.GetString("prompt.system_file")),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			BodyLimit:       v.GetInt("server.body_limit"),
		},
		Audit: AuditConfig{
			Enabled: v.GetBool("audit.enabled"),
			Path:    ExpandPath(v.GetString("audit.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = apiKeyFromEnv(c.LLM)
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("timezone %q: %w", c.Timezone, common.ErrInvalidConfig)
	}
	c.Location = loc
	return c, nil
}

func apiKeyFromEnv(c LLMConfig) string {
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	switch c.Provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
}

func (c Config) validate() error {
	p := c.Household.Participants
	if p.A == "" || p.B == "" {
		return fmt.Errorf("both household participants must be named: %w", common.ErrInvalidConfig)
	}
	if strings.EqualFold(string(p.A), string(p.B)) {
		return fmt.Errorf("household participants must differ, got %q twice: %w", p.A, common.ErrInvalidConfig)
	}

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q: %w", c.LLM.Provider, common.ErrInvalidConfig)
	}

	for key, d := range map[string]time.Duration{
		"relay.timeout":           c.Relay.Timeout,
		"llm.timeout":             c.LLM.Timeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %w", key, common.ErrInvalidConfig)
		}
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: %w", c.Logging.Format, common.ErrInvalidConfig)
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when the audit journal is enabled: %w", common.ErrMissingConfig)
	}
	return nil
}

// RelayEnabled reports whether a real relay URL is configured.
func (c Config) RelayEnabled() bool {
	return llm.RelayConfigured(c.Relay.URL)
}

// SecondaryEnabled reports whether the completion provider can be called.
func (c Config) SecondaryEnabled() bool {
	return c.LLM.APIKey != "" && len(c.LLM.Models) > 0
}

// RelayClientConfig converts to the provider package's relay settings.
func (c Config) RelayClientConfig() llm.RelayConfig {
	return llm.RelayConfig{
		URL:              c.Relay.URL,
		Timeout:          c.Relay.Timeout,
		RateLimit:        c.Relay.RateLimit,
		FailureThreshold: c.Relay.FailureThreshold,
		OpenTimeout:      c.Relay.OpenTimeout,
	}
}

// CompleterConfig converts to the provider package's completer settings.
func (c Config) CompleterConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Timeout:     c.LLM.Timeout,
		CacheTTL:    c.LLM.CacheTTL,
		RateLimit:   c.LLM.RateLimit,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// PromptBuilderConfig builds the prompt settings, reading the system
// prompt file when one is configured.
func (c Config) PromptBuilderConfig() (prompt.Config, error) {
	pc := prompt.DefaultConfig()
	pc.Participants = c.Household.Participants
	pc.Pets = c.Household.Pets
	pc.SystemOverride = c.Prompt.System

	if c.Prompt.SystemFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.Prompt.SystemFile))
		if err != nil {
			return prompt.Config{}, fmt.Errorf("failed to read system prompt file: %w", err)
		}
		pc.SystemOverride = string(data)
	}
	return pc, nil
}
