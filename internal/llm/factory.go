package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/spice-split/internal/common"
)

// Completer is a prompt-completion provider. Model selects the variant.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Config configures a Completer.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	CacheTTL    time.Duration
	RateLimit   int // requests per minute, 0 disables limiting
	Temperature float64
	MaxTokens   int
}

// NewCompleter creates a completer for the configured provider, wrapped
// with rate limiting and caching when those are enabled.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		c, err = newGeminiClient(ctx, cfg)
	case "openai":
		c, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		c = NewRateLimited(c, cfg.RateLimit)
	}
	if cfg.CacheTTL > 0 {
		c = NewCachedCompleter(c, cfg.CacheTTL)
	}
	return c, nil
}

// Close releases the resources held by c, if it holds any.
func Close(c Completer) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
