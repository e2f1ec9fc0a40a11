package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/normalize"
)

// placeholderHost marks a relay URL copied from the sample configuration.
const placeholderHost = "seu-n8n.com"

// maxRelayBody bounds how much of a relay response is read.
const maxRelayBody = 1 << 20

// RelayRequest is the payload posted to the relay webhook. The relay
// binds SystemPrompt to its system message and UserContextPrompt to the
// user message.
type RelayRequest struct {
	LastTransaction   *model.DraftDTO `json:"lastTransaction,omitempty"`
	Message           string          `json:"message"`
	UserContextPrompt string          `json:"userContextPrompt"`
	SystemPrompt      string          `json:"systemPrompt"`
	CurrentUser       string          `json:"currentUser,omitempty"`
	CurrentDate       string          `json:"currentDate"`
}

// RelayConfig configures a RelayClient.
type RelayConfig struct {
	URL     string
	Timeout time.Duration
	// RateLimit is in requests per minute.
	RateLimit int
	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// RelayConfigured reports whether url points at a real relay.
func RelayConfigured(url string) bool {
	url = strings.TrimSpace(url)
	return url != "" && !strings.Contains(url, placeholderHost)
}

// RelayClient posts messages to the relay webhook.
type RelayClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	url        string
}

// NewRelayClient creates a relay client. It fails with ErrMissingConfig
// when the URL is empty or still the sample placeholder.
func NewRelayClient(cfg RelayConfig, logger *slog.Logger) (*RelayClient, error) {
	if !RelayConfigured(cfg.URL) {
		return nil, fmt.Errorf("relay URL is not configured: %w", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	c := &RelayClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newLimiter(cfg.RateLimit),
		logger:     logger,
		url:        strings.TrimSpace(cfg.URL),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "relay",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the relay's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// Send posts req and returns the response body as an envelope. Transport
// errors, non-2xx statuses and an open breaker are returned as errors.
func (c *RelayClient) Send(ctx context.Context, req RelayRequest) (normalize.Envelope, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return normalize.Envelope{}, err
	}

	body, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return normalize.Envelope{}, fmt.Errorf("relay circuit breaker %s: %w", c.breaker.State(), common.ErrProviderUnavailable)
		}
		return normalize.Envelope{}, err
	}
	return normalize.FromJSON(body.([]byte)), nil
}

// State reports the breaker state, for health output.
func (c *RelayClient) State() string {
	return c.breaker.State().String()
}

func (c *RelayClient) post(ctx context.Context, req RelayRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay error (status %d): %s: %w", resp.StatusCode, truncateBody(body), common.ErrProviderStatus)
	}
	return body, nil
}
