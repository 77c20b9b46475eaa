// Command drip is a terminal chat client that streams completions through a
// throttled response controller.
//
// Usage:
//
//	ANTHROPIC_API_KEY=sk-... drip [flags]
//	GEMINI_API_KEY=gk-...   drip [flags]
//
// Flags:
//
//	-config string        Path to config file (default: ~/.drip/config.yaml)
//	-provider string      Provider: anthropic, gemini (auto-detected from env vars if omitted)
//	-model string         Model ID (default: provider default)
//	-api-key string       API key (overrides provider's env var)
//	-conversation string  ID of a stored conversation to resume
//	-store string         Conversation store: sqlite, json
//	-store-path string    Database file or directory of the store
//	-log-level string     Log level: debug, info, warn, error
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-no-transcript        Do not mirror responses to ~/drip-output.md
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/fwojciec/drip/exchange"
	"github.com/fwojciec/drip/metrics"
	"github.com/fwojciec/drip/tiktoken"
	"github.com/fwojciec/drip/transcript"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "drip: %v\n", err)
		os.Exit(1)
	}
}

// flags are the command-line overrides of Config.
type flags struct {
	config       string
	provider     string
	model        string
	apiKey       string
	conversation string
	store        string
	storePath    string
	logLevel     string
	metricsAddr  string
	noTranscript bool
}

func parseFlags(fs *flag.FlagSet, args []string, dir string) (flags, error) {
	var f flags
	fs.StringVar(&f.config, "config", filepath.Join(dir, "config.yaml"), "Path to config file")
	fs.StringVar(&f.provider, "provider", "", "Provider: anthropic, gemini (auto-detected from env vars if omitted)")
	fs.StringVar(&f.model, "model", "", "Model ID (provider-specific)")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (overrides provider's env var)")
	fs.StringVar(&f.conversation, "conversation", "", "ID of a stored conversation to resume")
	fs.StringVar(&f.store, "store", "", "Conversation store: sqlite, json")
	fs.StringVar(&f.storePath, "store-path", "", "Database file or directory of the store")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.BoolVar(&f.noTranscript, "no-transcript", false, "Do not mirror responses to the transcript file")
	err := fs.Parse(args)
	return f, err
}

// apply overlays the flags that were set onto cfg.
func (f flags) apply(cfg Config, dir string) (Config, error) {
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.store != "" && f.store != cfg.Store.Driver {
		cfg.Store.Driver = f.store
		// The configured path belongs to the other driver.
		cfg.Store.Path = ""
	}
	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Driver {
		case "json":
			cfg.Store.Path = filepath.Join(dir, "conversations")
		default:
			cfg.Store.Path = filepath.Join(dir, "drip.db")
		}
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if f.noTranscript {
		cfg.Transcript.Enabled = false
	}
	return cfg, cfg.validate()
}

func run() error {
	dir := dataDir()
	f, err := parseFlags(flag.CommandLine, os.Args[1:], dir)
	if err != nil {
		return err
	}
	configRequired := f.config != filepath.Join(dir, "config.yaml")
	cfg, err := loadConfig(f.config, configRequired, dir)
	if err != nil {
		return err
	}
	if cfg, err = f.apply(cfg, dir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	name, key, err := resolveConfig(cfg.Provider, f.apiKey,
		os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return err
	}
	provider, err := newProvider(ctx, name, key)
	if err != nil {
		return err
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel(name)
	}

	store, closer, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closer.Close()

	conv, err := loadConversation(ctx, store, f.conversation, model)
	if err != nil {
		return err
	}
	logger.Info("session started",
		zap.String("provider", name),
		zap.String("model", model),
		zap.String("conversation", conv.ID),
		zap.String("store", cfg.Store.Driver),
	)

	counter, maxContext := tokenCounter(model, cfg.MaxContextTokens, logger)

	m := metrics.New("drip")
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer shutdown(srv)
	}

	bridge := bt.NewBridge()
	sink := m.WrapSink(bridge)

	opts := []exchange.Option{
		exchange.WithLogger(logger),
		exchange.WithPersistence(store),
		exchange.WithPolicyGate(m.WrapGate(bridge)),
		exchange.WithInterval(cfg.FlushInterval),
		exchange.WithModel(cfg.Model),
		exchange.WithSystemPrompt(cfg.SystemPrompt),
		exchange.WithMaxTokens(cfg.MaxTokens),
		exchange.WithMaxContextTokens(maxContext),
	}
	if len(cfg.QuotaCodes) > 0 {
		opts = append(opts, exchange.WithQuotaCodes(cfg.QuotaCodes...))
	}
	if cfg.Transcript.Enabled {
		tf, err := transcriptFile(cfg.Transcript.Path)
		if err != nil {
			logger.Warn("transcript disabled", zap.Error(err))
		} else {
			opts = append(opts, exchange.WithTranscript(tf))
		}
	}
	runner := exchange.New(provider, counter, opts...)

	exchangeFn := func(ctx context.Context, conv *drip.Conversation, prompt string) (drip.Outcome, error) {
		return runner.Run(ctx, sink, conv, prompt)
	}
	if err := bt.Run(ctx, bt.New(exchangeFn, bridge, conv, drip.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	if len(conv.Messages) > 0 {
		fmt.Fprintf(os.Stderr, "Conversation %s saved to %s\n", conv.ID, cfg.Store.Path)
	}
	return nil
}

// loadConversation resumes id, or starts a new conversation when id is
// empty.
func loadConversation(ctx context.Context, store drip.ConversationStore, id, model string) (*drip.Conversation, error) {
	if id == "" {
		conv, err := store.CreateConversation(ctx, model)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conv, nil
	}
	conv, err := store.Conversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resume conversation %s: %w", id, err)
	}
	return conv, nil
}

// tokenCounter returns the BPE counter for model, or the character
// estimator when the encoding cannot be loaded. configured overrides the
// model's context size when positive.
func tokenCounter(model string, configured int, logger *zap.Logger) (drip.TokenCounter, int) {
	tk := tiktoken.New(model)
	maxContext := tk.MaxTokens()
	if configured > 0 {
		maxContext = configured
	}
	if err := tk.Warm(); err != nil {
		logger.Warn("token encoding unavailable, estimating", zap.Error(err))
		return drip.Estimator{}, maxContext
	}
	return tk, maxContext
}

func transcriptFile(path string) (*transcript.File, error) {
	if path == "" {
		var err error
		if path, err = transcript.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return transcript.NewFile(path), nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
