package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-split/internal/common"
)

const probePrompt = "Say HI"

// ProbeAttempt is the outcome of probing one model variant.
type ProbeAttempt struct {
	Err     error
	Model   string
	Reply   string
	Latency time.Duration
}

// Probe asks each model in turn to say hi and stops at the first that
// answers. It returns every attempt made and the working model, if any.
func Probe(ctx context.Context, c Completer, models []string, timeout time.Duration) ([]ProbeAttempt, string, error) {
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	attempts := make([]ProbeAttempt, 0, len(models))
	for _, m := range models {
		if err := ctx.Err(); err != nil {
			return attempts, "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		reply, err := c.Complete(callCtx, m, probePrompt)
		cancel()

		attempts = append(attempts, ProbeAttempt{
			Model:   m,
			Reply:   strings.TrimSpace(reply),
			Err:     err,
			Latency: time.Since(start),
		})
		if err == nil {
			return attempts, m, nil
		}
	}
	return attempts, "", fmt.Errorf("none of %d models answered: %w", len(models), common.ErrProviderUnavailable)
}
