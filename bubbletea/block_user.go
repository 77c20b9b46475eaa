package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*UserMessageBlock)(nil)

const promptMarker = "> "

// UserMessageBlock renders a submitted prompt. Wrapped lines hang under the
// marker. Once the exchange reports its totals the prompt's token count is
// shown after the text.
type UserMessageBlock struct {
	prompt string
	tokens int
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock for prompt.
func NewUserMessageBlock(prompt string, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{prompt: sanitize(prompt), styles: styles}
}

// SetTokens records the prompt's token count.
func (b *UserMessageBlock) SetTokens(n int) {
	b.tokens = n
}

func (b *UserMessageBlock) Update(tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *UserMessageBlock) View(width int) string {
	body := lipgloss.NewStyle().Width(max(width-len(promptMarker), 1)).Render(b.prompt)
	lines := strings.Split(body, "\n")
	marker := b.styles.UserMsg.Render(promptMarker)
	indent := strings.Repeat(" ", len(promptMarker))
	for i := range lines {
		if i == 0 {
			lines[i] = marker + lines[i]
		} else {
			lines[i] = indent + lines[i]
		}
	}
	if b.tokens > 0 {
		lines = append(lines, indent+b.styles.Muted.Render(fmt.Sprintf("%d tokens", b.tokens)))
	}
	return strings.Join(lines, "\n")
}
