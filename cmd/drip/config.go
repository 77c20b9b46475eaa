package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file configuration, overlaid by flags.
type Config struct {
	Provider         string           `yaml:"provider"`
	Model            string           `yaml:"model"`
	SystemPrompt     string           `yaml:"system_prompt"`
	MaxTokens        int              `yaml:"max_tokens"`
	FlushInterval    time.Duration    `yaml:"flush_interval"`
	MaxContextTokens int              `yaml:"max_context_tokens"`
	QuotaCodes       []string         `yaml:"quota_codes"`
	Store            StoreConfig      `yaml:"store"`
	Transcript       TranscriptConfig `yaml:"transcript"`
	Log              LogConfig        `yaml:"log"`
	Metrics          MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects where conversations are kept.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite or json
	Path   string `yaml:"path"`   // database file or directory
}

// TranscriptConfig controls the markdown side file.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls the JSON log file.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// defaultConfig returns the configuration used for keys the file omits.
// Paths live under dir.
func defaultConfig(dir string) Config {
	return Config{
		SystemPrompt:  "You are a helpful coding assistant.",
		FlushInterval: 8 * time.Millisecond,
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dir, "drip.db"),
		},
		Transcript: TranscriptConfig{Enabled: true},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "drip.log"),
		},
	}
}

// loadConfig reads path over the defaults. A missing file at the default
// location is not an error.
func loadConfig(path string, required bool, dir string) (Config, error) {
	cfg := defaultConfig(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "sqlite", "json":
	default:
		return fmt.Errorf("unknown store driver %q: must be \"sqlite\" or \"json\"", c.Store.Driver)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush_interval must not be negative, got %s", c.FlushInterval)
	}
	if c.MaxContextTokens < 0 {
		return fmt.Errorf("max_context_tokens must not be negative, got %d", c.MaxContextTokens)
	}
	return nil
}

// dataDir returns ~/.drip, or .drip when the home directory is unknown.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drip"
	}
	return filepath.Join(home, ".drip")
}
