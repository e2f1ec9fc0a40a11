package engine

import (
	"context"

	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/normalize"
)

// Relay is the primary provider: one webhook call per message.
type Relay interface {
	Send(ctx context.Context, req llm.RelayRequest) (normalize.Envelope, error)
}

// Completer is the secondary provider, called once per model variant.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}
