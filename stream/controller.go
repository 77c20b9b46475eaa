// Package stream turns an incrementally arriving completion into a
// throttled, ordered sequence of Sink notifications.
//
// The producer calls the Controller's Handle* methods from its own
// goroutine. Fragments are buffered and flushed to the Sink by a Scheduler
// on a fixed cadence, so the consumer sees at most one partial update per
// tick regardless of how fast fragments arrive. Every Sink call goes
// through a single Queue goroutine and is therefore observed in order.
package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"go.uber.org/zap"
)

// faultMessage is shown to the user when accounting or delivery fails.
const faultMessage = "Something went wrong."

// Controller is the state machine for one streaming exchange:
//
//	Idle → Streaming → {Completed | Errored | TokensExceeded | Cancelled}
//
// Terminal states are absorbing; Handle* calls made after one is reached
// do nothing. Exactly one terminal Sink notification is made per exchange
// and it is always accompanied by SetInteractionEnabled(true).
type Controller struct {
	sink       drip.Sink
	counter    drip.TokenCounter
	persist    drip.Persistence
	gate       drip.PolicyGate
	transcript drip.TranscriptMirror
	logger     *zap.Logger
	ctx        context.Context
	interval   time.Duration
	quotaCodes map[string]bool
	onAccepted func()
	baseTokens int

	buffer    *Buffer
	scheduler *Scheduler
	queue     *Queue

	// flushMu serializes drain-and-deliver so two flush cycles never
	// interleave their partial updates. Acquired before mu.
	flushMu sync.Mutex

	mu            sync.Mutex
	status        drip.Status
	outcome       drip.Outcome
	opened        bool
	stopped       bool
	paused        bool
	streamed      bool
	tokenEstimate int
	text          strings.Builder

	endMarker sync.Once
	teardown  sync.Once
	done      chan struct{}
}

// New creates a Controller in the Idle state.
func New(sink drip.Sink, counter drip.TokenCounter, opts ...Option) *Controller {
	c := &Controller{
		sink:       sink,
		counter:    counter,
		logger:     zap.NewNop(),
		ctx:        context.Background(),
		interval:   DefaultInterval,
		buffer:     NewBuffer(),
		queue:      NewQueue(),
		done:       make(chan struct{}),
		status:     drip.StatusIdle,
		quotaCodes: map[string]bool{},
	}
	for _, code := range drip.DefaultQuotaCodes {
		c.quotaCodes[code] = true
	}
	for _, o := range opts {
		o(c)
	}
	c.scheduler = NewScheduler(c.interval, c.flush)
	return c
}

// HandleRequestOpen marks the start of the exchange: the transcript gets
// its begin marker, interaction is disabled and the flush cadence starts.
// Only the first call has any effect.
func (c *Controller) HandleRequestOpen() {
	c.mu.Lock()
	if c.opened || c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.status = drip.StatusStreaming
	c.mu.Unlock()

	if c.transcript != nil {
		if err := c.transcript.AppendBeginMarker(); err != nil {
			c.logger.Warn("append transcript begin marker", zap.Error(err))
		}
	}
	c.post(func(s drip.Sink) { s.SetInteractionEnabled(false) })
	c.scheduler.Start()
}

// HandleMessage accepts one fragment from the producer. It buffers the
// fragment for the next flush and publishes the updated token estimate;
// the Sink never receives text from this call directly.
//
// A failure to count tokens, or a negative count, is an internal fault: it
// is reported to the Sink, ends the exchange and is returned wrapped in
// [drip.ErrInternalFault].
// Fragments arriving after the exchange stopped are ignored.
func (c *Controller) HandleMessage(fragment string) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return nil
	}

	n, err := c.count(fragment)
	if err == nil && n < 0 {
		err = fmt.Errorf("token counter returned %d", n)
	}
	if err != nil {
		c.logger.Error("count fragment tokens", zap.Error(err))
		c.end(drip.OutcomeError{Message: faultMessage}, func(s drip.Sink) {
			s.OnError(faultMessage)
			s.SetInteractionEnabled(true)
		})
		return fmt.Errorf("%w: count tokens: %w", drip.ErrInternalFault, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.text.WriteString(fragment)
	c.tokenEstimate += n
	total := c.baseTokens + c.tokenEstimate
	c.buffer.Offer(fragment)
	// Posted under mu so estimates reach the Sink in increasing order.
	c.post(func(s drip.Sink) { s.OnTokenEstimateChanged(total) })
	return nil
}

// HandleError ends the exchange with a producer failure. Quota codes are
// reported through OnQuotaExceeded, everything else through OnError.
func (c *Controller) HandleError(details drip.ErrorDetails, cause error) {
	message := details.Message
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" {
		message = faultMessage
	}
	outcome := drip.OutcomeError{Code: details.Code, Message: message}

	var ended bool
	if c.quotaCodes[details.Code] {
		ended = c.end(outcome, func(s drip.Sink) {
			s.OnQuotaExceeded()
			s.SetInteractionEnabled(true)
		})
	} else {
		ended = c.end(outcome, func(s drip.Sink) {
			s.OnError(message)
			s.SetInteractionEnabled(true)
		})
	}
	if !ended {
		c.logger.Debug("ignoring error after end of exchange", zap.String("code", details.Code))
		return
	}
	c.logger.Error("completion failed",
		zap.String("code", details.Code),
		zap.String("message", message),
		zap.Error(cause),
	)
}

// HandleTokensExceeded suspends forwarding and asks the policy gate whether
// to continue past the token limit. Fragments keep being buffered but are
// not flushed while the answer is pending.
//
// On accept the conversation's limits are discarded, forwarding resumes and
// the continuation set with [WithPolicyAccepted] runs. On decline the
// exchange is cancelled. Without a gate, or if the context ends first, the
// exchange ends as tokens-exceeded.
func (c *Controller) HandleTokensExceeded(conv *drip.Conversation, draft drip.Message) {
	c.mu.Lock()
	if c.status.Terminal() || c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.mu.Unlock()

	c.logger.Info("token limit exceeded",
		zap.String("conversation", conversationID(conv)),
		zap.String("message", draft.ID),
	)

	if c.gate == nil {
		c.endTokensExceeded(conv)
		return
	}

	var once sync.Once
	answered := make(chan struct{})
	c.gate.ConfirmContinue(c.ctx, conv, func(ok bool) {
		once.Do(func() {
			close(answered)
			c.resolvePolicy(conv, ok)
		})
	})
	go func() {
		select {
		case <-answered:
		case <-c.done:
		case <-c.ctx.Done():
			once.Do(func() { c.endTokensExceeded(conv) })
		}
	}()
}

func (c *Controller) resolvePolicy(conv *drip.Conversation, ok bool) {
	c.mu.Lock()
	terminal := c.status.Terminal()
	c.mu.Unlock()
	if terminal {
		c.logger.Debug("ignoring token limit answer after end of exchange",
			zap.String("conversation", conversationID(conv)))
		return
	}

	if !ok {
		c.logger.Info("token limit policy declined", zap.String("conversation", conversationID(conv)))
		c.end(drip.OutcomeCancelled{}, func(s drip.Sink) {
			s.OnCancelled()
			s.SetInteractionEnabled(true)
		})
		return
	}

	if c.persist != nil {
		if err := c.persist.DiscardTokenLimits(c.ctx, conv); err != nil {
			c.logger.Error("discard token limits", zap.Error(err))
			c.end(drip.OutcomeError{Message: faultMessage}, func(s drip.Sink) {
				s.OnError(faultMessage)
				s.SetInteractionEnabled(true)
			})
			return
		}
	}

	model := ""
	if conv != nil {
		model = conv.Model
	}
	c.logger.Info("token limit policy accepted",
		zap.String("action", "DISCARD_TOKEN_LIMIT"),
		zap.String("model", model),
		zap.String("conversation", conversationID(conv)),
	)

	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.status = drip.StatusStreaming
	c.mu.Unlock()

	if c.onAccepted != nil {
		c.onAccepted()
	}
}

func (c *Controller) endTokensExceeded(conv *drip.Conversation) {
	c.end(drip.OutcomeTokensExceeded{Conversation: conv}, func(s drip.Sink) {
		s.OnError("The conversation exceeds the model's token limit.")
		s.SetInteractionEnabled(true)
	})
}

// HandleCompleted ends the exchange successfully. Text still buffered is
// delivered first, so the rendered text equals fullText when OnCompleted
// fires. Then the message is persisted, the transcript end marker written,
// and the Sink told: interaction re-enabled, the whole text rendered in one
// shot if nothing was streamed, final token totals, and completion.
func (c *Controller) HandleCompleted(fullText string, params drip.CompletionParams) {
	c.mu.Lock()
	terminal := c.status.Terminal()
	c.mu.Unlock()
	if terminal {
		return
	}

	c.drainPending()

	if c.persist != nil {
		if err := c.persist.SaveMessage(c.ctx, fullText, params); err != nil {
			c.logger.Error("save message", zap.Error(err), zap.String("message", params.Message.ID))
		}
	}
	c.appendEndMarker()
	totals := c.totals(fullText, params)

	c.end(drip.OutcomeCompleted{Text: fullText}, func(s drip.Sink) {
		s.SetInteractionEnabled(true)
		if !c.Streamed() && fullText != "" {
			s.OnPartialUpdate(fullText)
		}
		s.OnTokenTotals(totals)
		s.OnCompleted(fullText)
	})
}

// HandleCodeGPTEvent forwards evt to the Sink unless the exchange ended.
func (c *Controller) HandleCodeGPTEvent(evt drip.CodeGPTEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return
	}
	c.post(func(s drip.Sink) { s.OnCodeGPTEvent(evt) })
}

// Cancel ends the exchange as cancelled. It does nothing once the exchange
// has ended.
func (c *Controller) Cancel() {
	c.end(drip.OutcomeCancelled{}, func(s drip.Sink) {
		s.OnCancelled()
		s.SetInteractionEnabled(true)
	})
}

// Flush runs one flush cycle: it drains the buffer and delivers the
// concatenation as a single partial update. With nothing buffered it does
// nothing, unless the exchange has stopped, in which case the scheduler is
// halted and the session torn down.
func (c *Controller) Flush() {
	c.flush()
}

func (c *Controller) flush() bool {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	paused, stopped := c.paused, c.stopped
	c.mu.Unlock()
	if paused {
		return true
	}

	batch := c.buffer.DrainAll()
	if len(batch) == 0 {
		if stopped {
			c.teardownSession()
			return false
		}
		return true
	}
	c.deliver(batch)
	return true
}

// drainPending delivers whatever is buffered, ignoring the paused flag.
func (c *Controller) drainPending() {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	if batch := c.buffer.DrainAll(); len(batch) > 0 {
		c.deliver(batch)
	}
}

// deliver must be called with flushMu held.
func (c *Controller) deliver(batch []string) {
	text := strings.Join(batch, "")
	c.mu.Lock()
	c.streamed = true
	c.mu.Unlock()
	c.post(func(s drip.Sink) { s.OnPartialUpdate(text) })
}

// end moves the exchange to the terminal state of o and posts notify, after
// delivering anything still buffered. It reports false when the exchange
// had already ended.
func (c *Controller) end(o drip.Outcome, notify func(drip.Sink)) bool {
	c.flushMu.Lock()
	c.mu.Lock()
	if c.status.Terminal() {
		c.mu.Unlock()
		c.flushMu.Unlock()
		return false
	}
	c.status = o.Status()
	c.outcome = o
	c.stopped = true
	c.paused = false
	c.mu.Unlock()

	if batch := c.buffer.DrainAll(); len(batch) > 0 {
		c.deliver(batch)
	}
	c.post(notify)
	c.flushMu.Unlock()

	// Without a running scheduler no tick will observe the stop.
	if !c.scheduler.Started() {
		c.teardownSession()
	}
	return true
}

// teardownSession halts the scheduler and closes Done once every queued
// notification has returned.
func (c *Controller) teardownSession() {
	c.teardown.Do(func() {
		c.scheduler.Stop()
		c.queue.Post(func() { close(c.done) })
		c.queue.Close()
	})
}

func (c *Controller) appendEndMarker() {
	if c.transcript == nil {
		return
	}
	c.endMarker.Do(func() {
		if err := c.transcript.AppendEndMarker(); err != nil {
			c.logger.Warn("append transcript end marker", zap.Error(err))
		}
	})
}

// post queues fn for the Sink goroutine. A panicking Sink is logged and
// does not take the queue down.
func (c *Controller) post(fn func(drip.Sink)) {
	ok := c.queue.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("sink panicked", zap.Any("panic", r))
			}
		}()
		fn(c.sink)
	})
	if !ok {
		c.logger.Debug("dropping notification after teardown")
	}
}

// count calls the token counter, converting a panic into an error.
func (c *Controller) count(text string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("token counter panicked: %v", r)
		}
	}()
	return c.counter.CountTokens(text)
}

// countOrEstimate falls back to a character estimate when the counter
// fails; final totals are informational.
func (c *Controller) countOrEstimate(text string) int {
	n, err := c.count(text)
	if err != nil {
		c.logger.Warn("count tokens, using estimate", zap.Error(err))
		return drip.EstimateTokens(text)
	}
	return n
}

func (c *Controller) totals(fullText string, params drip.CompletionParams) drip.TokenTotals {
	convText := params.Conversation.Text()
	if !params.Conversation.Contains(params.Message.ID) {
		convText = joinNonEmpty(convText, params.Message.Prompt, fullText)
	}
	return drip.TokenTotals{
		Prompt:       c.countOrEstimate(params.Message.Prompt),
		Conversation: c.countOrEstimate(convText),
	}
}

// Status returns the current state.
func (c *Controller) Status() drip.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Outcome returns how the exchange ended, or nil while it is running.
func (c *Controller) Outcome() drip.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Text returns a copy of every fragment accepted so far.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text.String()
}

// TokenEstimate returns the running token estimate of the accepted
// fragments, excluding the base tokens.
func (c *Controller) TokenEstimate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenEstimate
}

// Streamed reports whether at least one partial update has been handed to
// the Sink.
func (c *Controller) Streamed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamed
}

// Done is closed once the exchange has ended, the scheduler has halted and
// the terminal Sink notification has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func conversationID(conv *drip.Conversation) string {
	if conv == nil {
		return ""
	}
	return conv.ID
}

func joinNonEmpty(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
	}
	return b.String()
}
