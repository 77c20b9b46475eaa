package drip

import (
	"strings"
	"time"
)

// Message is one prompt/response exchange within a Conversation.
type Message struct {
	ID        string
	Prompt    string
	Response  string
	Timestamp time.Time
}

// Conversation is the ordered history a request is built from.
type Conversation struct {
	ID       string
	Model    string
	Messages []Message
	// DiscardTokenLimits is set once the user chose to continue past the
	// model's context limit; the limit check is skipped afterwards.
	DiscardTokenLimits bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Text returns every prompt and response of the conversation joined by
// newlines, in order. It is the input for conversation token counts.
func (c *Conversation) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, m := range c.Messages {
		for _, s := range [...]string{m.Prompt, m.Response} {
			if s == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

// CompletionParams are the call parameters the final message is saved
// with.
type CompletionParams struct {
	Conversation *Conversation
	Message      Message
}

// Contains reports whether the conversation holds a message with id.
func (c *Conversation) Contains(id string) bool {
	if c == nil || id == "" {
		return false
	}
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}
