package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders the streamed completion as markdown.
// Paragraphs ending at a blank line are rendered once per width and
// cached; only the trailing paragraph is re-rendered on each update.
type AssistantTextBlock struct {
	content strings.Builder
	theme   drip.Theme

	// stable is the prefix ending at the last blank line outside a code
	// fence.
	stable        string
	stableByWidth map[int]string
}

// NewAssistantTextBlock creates an empty block.
func NewAssistantTextBlock(theme drip.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{
		theme:         theme,
		stableByWidth: make(map[int]string),
	}
}

// Append adds a batch of streamed text. Escape sequences and control
// characters are removed first.
func (b *AssistantTextBlock) Append(text string) {
	b.content.WriteString(sanitize(text))
	b.promoteStable()
}

// Text returns everything appended so far.
func (b *AssistantTextBlock) Text() string {
	return b.content.String()
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	stable := b.renderStable(width)
	trailing := b.trailing()
	if hasUnclosedFence(trailing) {
		// Close the fence for rendering only so partial code displays.
		trailing += "\n```"
	}
	if trailing == "" {
		return stable
	}
	rendered := goldmark.Render(trailing, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return stable
	}
	if stable == "" {
		return rendered
	}
	return strings.TrimRight(stable, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteStable moves the stable boundary to the last blank line whose
// prefix has every fence closed.
func (b *AssistantTextBlock) promoteStable() {
	raw := b.content.String()
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.stable {
				b.stable = candidate
				clear(b.stableByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantTextBlock) renderStable(width int) string {
	if width <= 0 || b.stable == "" {
		return ""
	}
	if cached, ok := b.stableByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.stable, width, b.theme)
	b.stableByWidth[width] = rendered
	return rendered
}

func (b *AssistantTextBlock) trailing() string {
	raw := b.content.String()
	if b.stable == "" {
		return raw
	}
	return strings.TrimPrefix(raw, b.stable+"\n\n")
}

// hasUnclosedFence counts "```" occurrences. Triple backticks inside
// inline code spans are miscounted.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
