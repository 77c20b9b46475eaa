package tiktoken_test

import (
	"testing"

	"github.com/fwojciec/drip/tiktoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ModelTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model     string
		encoding  string
		maxTokens int
	}{
		{model: "gpt-4o", encoding: "o200k_base", maxTokens: 128000},
		{model: "gpt-4o-mini-2024-07-18", encoding: "o200k_base", maxTokens: 128000},
		{model: "gpt-4-0613", encoding: "cl100k_base", maxTokens: 8192},
		{model: "gpt-4-turbo-preview", encoding: "cl100k_base", maxTokens: 128000},
		{model: "claude-sonnet-4-20250514", encoding: "cl100k_base", maxTokens: 200000},
		{model: "some-local-model", encoding: tiktoken.DefaultEncoding, maxTokens: 8192},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()
			c := tiktoken.New(tt.model)
			assert.Equal(t, tt.model, c.Model())
			assert.Equal(t, tt.encoding, c.Encoding())
			assert.Equal(t, tt.maxTokens, c.MaxTokens())
		})
	}
}

func TestCounter_CountTokens(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("loading BPE ranks may need the network")
	}

	c := tiktoken.New("gpt-4")
	if err := c.Warm(); err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}

	n, err := c.CountTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.CountTokens("hello world")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
