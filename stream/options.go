package stream

import (
	"context"
	"time"

	"github.com/fwojciec/drip"
	"go.uber.org/zap"
)

// DefaultInterval is the flush cadence used when none is configured.
const DefaultInterval = 8 * time.Millisecond

// Option configures a [Controller].
type Option func(*Controller)

// WithPersistence sets where finished messages are saved.
func WithPersistence(p drip.Persistence) Option {
	return func(c *Controller) { c.persist = p }
}

// WithPolicyGate sets the gate consulted when the token limit is exceeded.
// Without a gate the exchange ends as tokens-exceeded.
func WithPolicyGate(g drip.PolicyGate) Option {
	return func(c *Controller) { c.gate = g }
}

// WithTranscript sets the transcript mirror.
func WithTranscript(t drip.TranscriptMirror) Option {
	return func(c *Controller) { c.transcript = t }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithInterval sets the flush cadence.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithQuotaCodes sets the producer error codes reported as quota
// exhaustion instead of generic errors.
func WithQuotaCodes(codes ...string) Option {
	return func(c *Controller) {
		c.quotaCodes = make(map[string]bool, len(codes))
		for _, code := range codes {
			c.quotaCodes[code] = true
		}
	}
}

// WithPolicyAccepted sets the continuation run after the policy gate
// accepted to continue past the token limit. It is called from the
// goroutine that resolved the gate.
func WithPolicyAccepted(fn func()) Option {
	return func(c *Controller) { c.onAccepted = fn }
}

// WithBaseTokens sets the token count the running estimate is added to,
// normally the conversation's tokens before this exchange.
func WithBaseTokens(n int) Option {
	return func(c *Controller) { c.baseTokens = n }
}

// WithContext sets the context passed to collaborator calls. Cancelling it
// while the policy gate is pending ends the exchange as tokens-exceeded.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}
