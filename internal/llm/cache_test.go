package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter answers from a per-model table and counts calls.
type fakeCompleter struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
	mu      sync.Mutex
}

func (f *fakeCompleter) Complete(ctx context.Context, model, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.replies[model], nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestCachedCompleter(t *testing.T) {
	t.Run("hits skip the provider", func(t *testing.T) {
		fake := &fakeCompleter{replies: map[string]string{"m": "HI"}}
		c := NewCachedCompleter(fake, time.Minute)

		for i := 0; i < 3; i++ {
			out, err := c.Complete(context.Background(), "m", "Say HI")
			require.NoError(t, err)
			assert.Equal(t, "HI", out)
		}
		assert.Equal(t, 1, fake.callCount())
		assert.Equal(t, 1, c.Len())
	})

	t.Run("model is part of the key", func(t *testing.T) {
		fake := &fakeCompleter{replies: map[string]string{"a": "from a", "b": "from b"}}
		c := NewCachedCompleter(fake, time.Minute)

		outA, err := c.Complete(context.Background(), "a", "same prompt")
		require.NoError(t, err)
		outB, err := c.Complete(context.Background(), "b", "same prompt")
		require.NoError(t, err)

		assert.Equal(t, "from a", outA)
		assert.Equal(t, "from b", outB)
		assert.Equal(t, 2, fake.callCount())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		fake := &fakeCompleter{errs: map[string]error{"m": errors.New("quota")}}
		c := NewCachedCompleter(fake, time.Minute)

		_, err := c.Complete(context.Background(), "m", "p")
		require.Error(t, err)
		_, err = c.Complete(context.Background(), "m", "p")
		require.Error(t, err)

		assert.Equal(t, 2, fake.callCount())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("expiration", func(t *testing.T) {
		fake := &fakeCompleter{replies: map[string]string{"m": "HI"}}
		c := NewCachedCompleter(fake, 50*time.Millisecond)

		_, err := c.Complete(context.Background(), "m", "p")
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
		_, err = c.Complete(context.Background(), "m", "p")
		require.NoError(t, err)

		assert.Equal(t, 2, fake.callCount())
	})
}
