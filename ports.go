package drip

import "context"

// Persistence stores finished messages and conversation policy flags.
type Persistence interface {
	// SaveMessage records text as the response to params.Message and
	// appends the message to params.Conversation.
	SaveMessage(ctx context.Context, text string, params CompletionParams) error
	// DiscardTokenLimits marks the conversation as exempt from the token
	// limit check.
	DiscardTokenLimits(ctx context.Context, conv *Conversation) error
}

// PolicyGate asks whether to continue past a token-limit condition.
//
// ConfirmContinue must not block. The gate calls resolve exactly once,
// from any goroutine, with true to discard the limit and continue or false
// to decline.
type PolicyGate interface {
	ConfirmContinue(ctx context.Context, conv *Conversation, resolve func(ok bool))
}

// TranscriptMirror mirrors exchanges to a side file. Failures are logged by
// the caller and never fail the stream.
type TranscriptMirror interface {
	AppendBeginMarker() error
	AppendEndMarker() error
}

// ConversationStore is Persistence that can also create and load
// conversations.
type ConversationStore interface {
	Persistence
	// CreateConversation starts an empty conversation for model.
	CreateConversation(ctx context.Context, model string) (*Conversation, error)
	// Conversation loads a conversation with its messages in order. It
	// returns ErrConversationNotFound for unknown IDs.
	Conversation(ctx context.Context, id string) (*Conversation, error)
}
