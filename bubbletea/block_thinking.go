package bubbletea

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var _ MessageBlock = (*ThinkingBlock)(nil)

// ThinkingBlock holds the producer's reasoning, received as "thinking"
// events. Collapsed it shows a header with the reasoning's length;
// ToggleMsg expands it to the full text.
type ThinkingBlock struct {
	reasoning strings.Builder
	expanded  bool
	styles    Styles
}

// NewThinkingBlock creates a collapsed ThinkingBlock.
func NewThinkingBlock(styles Styles) *ThinkingBlock {
	return &ThinkingBlock{styles: styles}
}

// Append adds reasoning text.
func (b *ThinkingBlock) Append(text string) {
	b.reasoning.WriteString(sanitize(text))
}

func (b *ThinkingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.expanded = !b.expanded
	}
	return b, nil
}

func (b *ThinkingBlock) View(width int) string {
	text := b.reasoning.String()
	if b.expanded {
		header := b.styles.Thinking.Render("▼ Thinking")
		if text == "" {
			return header
		}
		return header + "\n" + b.styles.Thinking.Render(lipgloss.NewStyle().Width(width).Render(text))
	}

	header := "▶ Thinking"
	if text == "" {
		return b.styles.Thinking.Render(header)
	}
	header = b.styles.Thinking.Render(header + fmt.Sprintf(" (%d chars)", utf8.RuneCountInString(text)))
	// Single-line reasoning stays hidden; longer reasoning previews its
	// latest line, cut to the width left after the header.
	if !strings.Contains(strings.TrimSpace(text), "\n") {
		return header
	}
	room := max(width-lipgloss.Width(header)-1, 0)
	return header + " " + b.styles.Muted.Render(ansi.Truncate(lastLine(text), room, "…"))
}

// lastLine returns the last non-blank line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, " \t\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
