package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single line", input: "Mercado 350\n", want: []string{"Mercado 350"}},
		{name: "whitespace trimmed", input: "  Uber 45  \n", want: []string{"Uber 45"}},
		{name: "empty line", input: "\n", want: []string{""}},
		{name: "last line without newline", input: "a\nb", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(tt.input))
			for _, want := range tt.want {
				got, err := r.ReadLine(context.Background())
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			_, err := r.ReadLine(context.Background())
			assert.True(t, errors.Is(err, io.EOF))
		})
	}
}

func TestLineReader_Cancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ReadLine(ctx)
	assert.True(t, errors.Is(err, ErrInputCancelled))
}
