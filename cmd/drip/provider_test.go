package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                        string
		provider, flagKey, ant, gem string
		wantName, wantKey           string
		wantErr                     string
	}{
		{name: "explicit anthropic", provider: "anthropic", flagKey: "sk-test", wantName: "anthropic", wantKey: "sk-test"},
		{name: "explicit gemini", provider: "gemini", flagKey: "gk-test", wantName: "gemini", wantKey: "gk-test"},
		{name: "auto-detect anthropic", ant: "sk-ant", wantName: "anthropic", wantKey: "sk-ant"},
		{name: "auto-detect gemini", gem: "gk-gem", wantName: "gemini", wantKey: "gk-gem"},
		{name: "flag key overrides env", provider: "anthropic", flagKey: "sk-flag", ant: "sk-env", wantName: "anthropic", wantKey: "sk-flag"},
		{name: "unknown provider", provider: "openai", flagKey: "key", wantErr: "unknown provider"},
		{name: "no keys", wantErr: "no API key found"},
		{name: "both keys", ant: "sk-ant", gem: "gk-gem", wantErr: "multiple API keys"},
		{name: "anthropic without key", provider: "anthropic", wantErr: "ANTHROPIC_API_KEY not set"},
		{name: "gemini without key", provider: "gemini", wantErr: "GEMINI_API_KEY not set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, key, err := resolveConfig(tt.provider, tt.flagKey, tt.ant, tt.gem)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"anthropic", "gemini"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := newProvider(context.Background(), name, "key")
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := newProvider(context.Background(), "openai", "key")
		require.Error(t, err)
	})
}

func TestDefaultModel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gemini-2.5-flash", defaultModel("gemini"))
	assert.Equal(t, "claude-sonnet-4-20250514", defaultModel("anthropic"))
}
