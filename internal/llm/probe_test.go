package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/common"
)

func TestProbe(t *testing.T) {
	fake := &fakeCompleter{
		replies: map[string]string{"gemini-1.5-flash": " HI \n"},
		errs:    map[string]error{"gemini-2.0-flash-exp": errors.New("404 model not found")},
	}

	attempts, working, err := Probe(context.Background(), fake, DefaultGeminiModels(), 0)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", working)
	require.Len(t, attempts, 2)
	assert.Error(t, attempts[0].Err)
	assert.Equal(t, "HI", attempts[1].Reply)
}

func TestProbe_NoneAnswer(t *testing.T) {
	fake := &fakeCompleter{errs: map[string]error{
		"a": errors.New("down"),
		"b": errors.New("down"),
	}}

	attempts, working, err := Probe(context.Background(), fake, []string{"a", "b"}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrProviderUnavailable))
	assert.Empty(t, working)
	assert.Len(t, attempts, 2)
}

func TestProbe_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, _, err := Probe(ctx, &fakeCompleter{}, []string{"a"}, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, attempts)
}
