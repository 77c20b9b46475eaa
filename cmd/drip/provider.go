package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/anthropic"
	"github.com/fwojciec/drip/gemini"
)

// resolveConfig picks the provider name and API key. All env var values
// are passed in; env is only read in main().
func resolveConfig(providerName, apiKeyFlag, anthropicEnvKey, geminiEnvKey string) (name, key string, err error) {
	name = providerName
	if name == "" {
		hasAnthropic := anthropicEnvKey != ""
		hasGemini := geminiEnvKey != ""
		switch {
		case hasAnthropic && hasGemini:
			return "", "", fmt.Errorf("multiple API keys found (ANTHROPIC_API_KEY, GEMINI_API_KEY): use -provider flag to select")
		case hasAnthropic:
			name = "anthropic"
		case hasGemini:
			name = "gemini"
		default:
			return "", "", fmt.Errorf("no API key found: set ANTHROPIC_API_KEY or GEMINI_API_KEY (or use -provider and -api-key flags)")
		}
	}

	key = apiKeyFlag
	switch name {
	case "anthropic":
		if key == "" {
			key = anthropicEnvKey
		}
		if key == "" {
			return "", "", fmt.Errorf("ANTHROPIC_API_KEY not set (use -api-key flag or environment variable)")
		}
	case "gemini":
		if key == "" {
			key = geminiEnvKey
		}
		if key == "" {
			return "", "", fmt.Errorf("GEMINI_API_KEY not set (use -api-key flag or environment variable)")
		}
	default:
		return "", "", fmt.Errorf("unknown provider %q: must be \"anthropic\" or \"gemini\"", name)
	}
	return name, key, nil
}

// newProvider constructs the named provider.
func newProvider(ctx context.Context, name, key string) (drip.Provider, error) {
	switch name {
	case "anthropic":
		return anthropic.New(key), nil
	case "gemini":
		client, err := gemini.New(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// defaultModel is the model a provider uses when none is configured.
func defaultModel(provider string) string {
	if provider == "gemini" {
		return gemini.DefaultModel
	}
	return anthropic.DefaultModel
}
