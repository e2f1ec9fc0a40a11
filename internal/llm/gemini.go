package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Veraticus/spice-split/internal/common"
)

// DefaultGeminiModels are the Gemini variants tried in order.
func DefaultGeminiModels() []string {
	return []string{
		"gemini-2.0-flash-exp",
		"gemini-1.5-flash",
		"gemini-1.5-flash-8b",
		"gemini-1.5-pro",
		"gemini-1.0-pro",
	}
}

// geminiClient implements Completer on top of the Gemini API.
type geminiClient struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
}

func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required: %w", common.ErrMissingConfig)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	return &geminiClient{
		client:      client,
		temperature: float32(temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Complete generates a reply with the given model variant.
func (c *geminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(c.temperature)
	if c.maxTokens > 0 {
		m.SetMaxOutputTokens(c.maxTokens)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini %s returned no candidates: %w", model, common.ErrProviderUnavailable)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini %s returned no text: %w", model, common.ErrProviderUnavailable)
	}
	return b.String(), nil
}

// Close releases the underlying gRPC connection.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
