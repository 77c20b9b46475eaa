package mock

import (
	"context"

	"github.com/fwojciec/drip"
)

// Interface compliance checks.
var (
	_ drip.Persistence       = (*Persistence)(nil)
	_ drip.PolicyGate        = (*PolicyGate)(nil)
	_ drip.TranscriptMirror  = (*TranscriptMirror)(nil)
	_ drip.TokenCounter      = (*TokenCounter)(nil)
	_ drip.ConversationStore = (*ConversationStore)(nil)
)

// Persistence is a test double for drip.Persistence.
// Both methods panic when their function field is nil.
type Persistence struct {
	SaveMessageFn        func(ctx context.Context, text string, params drip.CompletionParams) error
	DiscardTokenLimitsFn func(ctx context.Context, conv *drip.Conversation) error
}

// SaveMessage delegates to SaveMessageFn.
func (p *Persistence) SaveMessage(ctx context.Context, text string, params drip.CompletionParams) error {
	return p.SaveMessageFn(ctx, text, params)
}

// DiscardTokenLimits delegates to DiscardTokenLimitsFn.
func (p *Persistence) DiscardTokenLimits(ctx context.Context, conv *drip.Conversation) error {
	return p.DiscardTokenLimitsFn(ctx, conv)
}

// PolicyGate is a test double for drip.PolicyGate.
// Set ConfirmContinueFn before calling ConfirmContinue.
type PolicyGate struct {
	ConfirmContinueFn func(ctx context.Context, conv *drip.Conversation, resolve func(ok bool))
}

// ConfirmContinue delegates to ConfirmContinueFn.
func (g *PolicyGate) ConfirmContinue(ctx context.Context, conv *drip.Conversation, resolve func(ok bool)) {
	g.ConfirmContinueFn(ctx, conv, resolve)
}

// TranscriptMirror is a test double for drip.TranscriptMirror.
// Both methods return nil when their function field is nil.
type TranscriptMirror struct {
	AppendBeginMarkerFn func() error
	AppendEndMarkerFn   func() error
}

// AppendBeginMarker delegates to AppendBeginMarkerFn.
func (m *TranscriptMirror) AppendBeginMarker() error {
	if m.AppendBeginMarkerFn == nil {
		return nil
	}
	return m.AppendBeginMarkerFn()
}

// AppendEndMarker delegates to AppendEndMarkerFn.
func (m *TranscriptMirror) AppendEndMarker() error {
	if m.AppendEndMarkerFn == nil {
		return nil
	}
	return m.AppendEndMarkerFn()
}

// TokenCounter is a test double for drip.TokenCounter.
// Set CountTokensFn before calling CountTokens.
type TokenCounter struct {
	CountTokensFn func(text string) (int, error)
}

// CountTokens delegates to CountTokensFn.
func (c *TokenCounter) CountTokens(text string) (int, error) {
	return c.CountTokensFn(text)
}

// ConversationStore is a test double for drip.ConversationStore.
// Each method panics when its function field is nil.
type ConversationStore struct {
	Persistence
	CreateConversationFn func(ctx context.Context, model string) (*drip.Conversation, error)
	ConversationFn       func(ctx context.Context, id string) (*drip.Conversation, error)
}

// CreateConversation delegates to CreateConversationFn.
func (s *ConversationStore) CreateConversation(ctx context.Context, model string) (*drip.Conversation, error) {
	return s.CreateConversationFn(ctx, model)
}

// Conversation delegates to ConversationFn.
func (s *ConversationStore) Conversation(ctx context.Context, id string) (*drip.Conversation, error) {
	return s.ConversationFn(ctx, id)
}
