package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/normalize"
)

// MockRelay is a scripted Relay for tests and offline runs.
// It replays its envelopes in order and then keeps returning the last one.
type MockRelay struct {
	Err       error
	Panic     any
	envelopes []normalize.Envelope
	requests  []llm.RelayRequest
	mu        sync.Mutex
}

// NewMockRelay creates a relay that answers with the given envelopes.
func NewMockRelay(envelopes ...normalize.Envelope) *MockRelay {
	return &MockRelay{envelopes: envelopes}
}

// Send records the request and replays the next scripted answer.
func (m *MockRelay) Send(ctx context.Context, req llm.RelayRequest) (normalize.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Panic != nil {
		panic(m.Panic)
	}
	if err := ctx.Err(); err != nil {
		return normalize.Envelope{}, err
	}
	if m.Err != nil {
		return normalize.Envelope{}, m.Err
	}
	if len(m.envelopes) == 0 {
		return normalize.Envelope{}, common.ErrProviderUnavailable
	}

	env := m.envelopes[0]
	if len(m.envelopes) > 1 {
		m.envelopes = m.envelopes[1:]
	}
	return env, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockRelay) Requests() []llm.RelayRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.RelayRequest(nil), m.requests...)
}

// MockCall records one completion request.
type MockCall struct {
	Model  string
	Prompt string
}

// MockCompleter answers per model variant. Models without a reply or an
// error fail with ErrProviderUnavailable.
type MockCompleter struct {
	replies map[string]string
	errs    map[string]error
	calls   []MockCall
	mu      sync.Mutex
}

// NewMockCompleter creates an empty completer; script it with Reply and Fail.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		replies: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// Reply scripts the text returned for model.
func (m *MockCompleter) Reply(model, text string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[model] = text
	return m
}

// Fail scripts the error returned for model.
func (m *MockCompleter) Fail(model string, err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[model] = err
	return m
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Model: model, Prompt: prompt})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.errs[model]; ok {
		return "", err
	}
	if text, ok := m.replies[model]; ok {
		return text, nil
	}
	return "", common.ErrProviderUnavailable
}

// Calls returns a copy of every completion request seen so far.
func (m *MockCompleter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
