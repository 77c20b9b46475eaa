package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a one-line status notice: an error, exhausted quota,
// a cancellation or the token-limit question.
type NoticeBlock struct {
	text  string
	style lipgloss.Style
}

// NewErrorBlock creates a notice for a failed exchange.
func NewErrorBlock(message string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: "Error: " + sanitize(message), style: styles.Error}
}

// NewQuotaBlock creates a notice for exhausted quota.
func NewQuotaBlock(styles Styles) *NoticeBlock {
	return &NoticeBlock{
		text:  "You exceeded your current quota. Check your plan and billing details.",
		style: styles.Warning,
	}
}

// NewCancelledBlock creates a notice for a cancelled exchange.
func NewCancelledBlock(styles Styles) *NoticeBlock {
	return &NoticeBlock{text: "Cancelled.", style: styles.Muted}
}

// NewConfirmBlock creates the token-limit question.
func NewConfirmBlock(styles Styles) *NoticeBlock {
	return &NoticeBlock{
		text:  "This conversation exceeds the model's token limit. Continue anyway? (y/n)",
		style: styles.Warning,
	}
}

func (b *NoticeBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.style.Render(b.text))
}
