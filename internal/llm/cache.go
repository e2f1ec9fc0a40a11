package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedCompleter memoizes successful completions per model and prompt.
// Errors are never cached.
type CachedCompleter struct {
	next  Completer
	cache *cache.Cache
}

// NewCachedCompleter wraps next with a TTL cache.
func NewCachedCompleter(next Completer, ttl time.Duration) *CachedCompleter {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &CachedCompleter{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Complete returns a cached reply or asks the wrapped completer.
func (c *CachedCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	key := cacheKey(model, prompt)
	if v, found := c.cache.Get(key); found {
		if s, ok := v.(string); ok {
			return s, nil
		}
	}

	out, err := c.next.Complete(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

// Len returns the number of cached replies, expired ones included until cleanup.
func (c *CachedCompleter) Len() int {
	return c.cache.ItemCount()
}

// Close closes the wrapped completer.
func (c *CachedCompleter) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
