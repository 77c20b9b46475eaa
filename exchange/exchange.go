// Package exchange drives one prompt/response exchange: it checks the token
// limit, streams the provider's response through a stream.Controller and
// reports how the exchange ended.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/stream"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner runs exchanges against a Provider.
type Runner struct {
	provider   drip.Provider
	counter    drip.TokenCounter
	persist    drip.Persistence
	gate       drip.PolicyGate
	transcript drip.TranscriptMirror
	logger     *zap.Logger
	interval   time.Duration
	quotaCodes []string

	model            string
	systemPrompt     string
	maxTokens        int
	maxContextTokens int

	newID func() string
	now   func() time.Time
}

// Option configures a [Runner].
type Option func(*Runner)

// WithPersistence sets where finished messages are saved.
func WithPersistence(p drip.Persistence) Option {
	return func(r *Runner) { r.persist = p }
}

// WithPolicyGate sets the gate asked whether to continue past the token
// limit.
func WithPolicyGate(g drip.PolicyGate) Option {
	return func(r *Runner) { r.gate = g }
}

// WithTranscript sets the transcript mirror.
func WithTranscript(t drip.TranscriptMirror) Option {
	return func(r *Runner) { r.transcript = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithInterval sets the flush cadence of each exchange.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) { r.interval = d }
}

// WithQuotaCodes sets the producer error codes reported as quota
// exhaustion.
func WithQuotaCodes(codes ...string) Option {
	return func(r *Runner) { r.quotaCodes = codes }
}

// WithModel sets the model ID sent with each request. Empty means the
// provider default.
func WithModel(model string) Option {
	return func(r *Runner) { r.model = model }
}

// WithSystemPrompt sets the system prompt sent with each request.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runner) { r.systemPrompt = prompt }
}

// WithMaxTokens sets the response token cap sent with each request.
func WithMaxTokens(n int) Option {
	return func(r *Runner) { r.maxTokens = n }
}

// WithMaxContextTokens sets the model's context size. Exchanges whose
// conversation plus prompt exceed it go through the policy gate first.
// Zero disables the check.
func WithMaxContextTokens(n int) Option {
	return func(r *Runner) { r.maxContextTokens = n }
}

// New creates a Runner streaming from provider and counting tokens with
// counter.
func New(provider drip.Provider, counter drip.TokenCounter, opts ...Option) *Runner {
	r := &Runner{
		provider: provider,
		counter:  counter,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run sends prompt as the next message of conv and delivers the response
// to sink. It blocks until the exchange has ended and every notification
// has reached the sink, then returns the outcome. Cancelling ctx cancels
// the exchange.
//
// On completion the message is appended to conv.
func (r *Runner) Run(ctx context.Context, sink drip.Sink, conv *drip.Conversation, prompt string) (drip.Outcome, error) {
	if conv == nil {
		return nil, fmt.Errorf("exchange: conversation required: %w", drip.ErrValidation)
	}
	req := drip.Request{
		Model:        r.model,
		SystemPrompt: r.systemPrompt,
		Conversation: conv,
		Prompt:       prompt,
		MaxTokens:    r.maxTokens,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	params := drip.CompletionParams{
		Conversation: conv,
		Message:      drip.Message{ID: r.newID(), Prompt: prompt, Timestamp: r.now()},
	}
	logger := r.logger.With(zap.String("conversation", conv.ID), zap.String("message", params.Message.ID))

	convTokens := r.countOrEstimate(conv.Text())
	promptTokens := r.countOrEstimate(prompt)

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	var producers group
	var c *stream.Controller
	opts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithContext(ctx),
		stream.WithBaseTokens(convTokens + promptTokens),
		stream.WithPolicyAccepted(func() {
			conv.DiscardTokenLimits = true
			producers.spawn(func() { r.produce(streamCtx, c, req, params, logger) })
		}),
	}
	if r.interval > 0 {
		opts = append(opts, stream.WithInterval(r.interval))
	}
	if r.quotaCodes != nil {
		opts = append(opts, stream.WithQuotaCodes(r.quotaCodes...))
	}
	if r.persist != nil {
		opts = append(opts, stream.WithPersistence(r.persist))
	}
	if r.gate != nil {
		opts = append(opts, stream.WithPolicyGate(r.gate))
	}
	if r.transcript != nil {
		opts = append(opts, stream.WithTranscript(r.transcript))
	}
	c = stream.New(sink, r.counter, opts...)

	go func() {
		select {
		case <-ctx.Done():
			c.Cancel()
		case <-c.Done():
		}
	}()

	if r.exceedsLimit(conv, convTokens+promptTokens) {
		logger.Info("conversation exceeds context window",
			zap.Int("tokens", convTokens+promptTokens),
			zap.Int("max", r.maxContextTokens),
		)
		c.HandleTokensExceeded(conv, params.Message)
	} else {
		producers.spawn(func() { r.produce(streamCtx, c, req, params, logger) })
	}

	<-c.Done()
	cancelStream()
	producers.wait()

	outcome := c.Outcome()
	if done, ok := outcome.(drip.OutcomeCompleted); ok {
		msg := params.Message
		msg.Response = done.Text
		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = r.now()
	}
	return outcome, nil
}

func (r *Runner) exceedsLimit(conv *drip.Conversation, tokens int) bool {
	return r.maxContextTokens > 0 && !conv.DiscardTokenLimits && tokens > r.maxContextTokens
}

// produce pulls the provider stream into the controller until it ends.
func (r *Runner) produce(ctx context.Context, c *stream.Controller, req drip.Request, params drip.CompletionParams, logger *zap.Logger) {
	s, err := r.provider.Stream(ctx, req)
	if err != nil {
		r.fail(ctx, c, err)
		return
	}
	defer s.Close()

	c.HandleRequestOpen()
	for {
		evt, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.fail(ctx, c, err)
			return
		}
		switch e := evt.(type) {
		case drip.EventTextDelta:
			if err := c.HandleMessage(e.Delta); err != nil {
				logger.Error("handle fragment", zap.Error(err))
				return
			}
		case drip.EventCodeGPT:
			c.HandleCodeGPTEvent(e.Event)
		}
	}

	resp, err := s.Response()
	if err != nil {
		r.fail(ctx, c, err)
		return
	}
	logger.Debug("stream completed",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	c.HandleCompleted(resp.Text, params)
}

// fail ends the exchange for a producer error; errors caused by the
// exchange's own cancellation end it as cancelled.
func (r *Runner) fail(ctx context.Context, c *stream.Controller, err error) {
	if ctx.Err() != nil {
		c.Cancel()
		return
	}
	c.HandleError(drip.DetailsOf(err), err)
}

func (r *Runner) countOrEstimate(text string) int {
	n, err := r.counter.CountTokens(text)
	if err != nil {
		r.logger.Warn("count tokens, using estimate", zap.Error(err))
		return drip.EstimateTokens(text)
	}
	return n
}

// group tracks producer goroutines. Once wait has been called no new
// goroutine is started.
type group struct {
	mu        sync.Mutex
	finishing bool
	eg        errgroup.Group
}

func (g *group) spawn(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finishing {
		return
	}
	g.eg.Go(func() error {
		fn()
		return nil
	})
}

func (g *group) wait() {
	g.mu.Lock()
	g.finishing = true
	g.mu.Unlock()
	_ = g.eg.Wait()
}
