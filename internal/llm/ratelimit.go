package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-split/internal/common"
)

// newLimiter allows requestsPerMinute calls per minute with a burst of a
// tenth of that, at least one.
func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}

// wait blocks until the limiter allows a call or ctx is done.
func wait(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	}
	return nil
}

// RateLimited throttles calls to a Completer.
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter of requestsPerMinute.
func NewRateLimited(next Completer, requestsPerMinute int) *RateLimited {
	return &RateLimited{next: next, limiter: newLimiter(requestsPerMinute)}
}

// Complete waits for the limiter, then delegates.
func (r *RateLimited) Complete(ctx context.Context, model, prompt string) (string, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, model, prompt)
}

// Close closes the wrapped completer.
func (r *RateLimited) Close() error {
	if closer, ok := r.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
