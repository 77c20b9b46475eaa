package bubbletea_test

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/fwojciec/drip/goldmark"
	"github.com/stretchr/testify/assert"
)

func TestAssistantTextBlock_View(t *testing.T) {
	t.Parallel()

	theme := drip.DefaultTheme()

	t.Run("renders markdown", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello **world**")
		view := block.View(80)
		assert.Contains(t, view, "hello")
		assert.Contains(t, view, "world")
	})

	t.Run("append accumulates batches", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello ")
		block.Append("world")
		assert.Contains(t, block.View(80), "hello world")
		assert.Equal(t, "hello world", block.Text())
	})

	t.Run("stable paragraph stays while trailing text streams", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("first paragraph\n\n")
		block.Append("trailing")
		view := block.View(80)
		assert.Contains(t, view, "first paragraph")
		assert.Contains(t, view, "trailing")
	})

	t.Run("width change re-renders cached paragraphs", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("word1 word2 word3 word4 word5 word6\n\ntail")
		narrow := block.View(20)
		wide := block.View(80)
		assert.NotEqual(t, strings.Count(narrow, "\n"), strings.Count(wide, "\n"))
	})

	t.Run("content ending at a blank line matches a full render", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("complete paragraph\n\n")
		assert.Equal(t,
			strings.TrimRight(goldmark.Render("complete paragraph", 80, theme), "\n"),
			strings.TrimRight(block.View(80), "\n"),
		)
	})

	t.Run("unclosed fence renders", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("```go\nfmt.Println(\"x\")")
		assert.Contains(t, block.View(80), "fmt.Println")
	})

	t.Run("blank line inside a fence is not a boundary", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("text\n\n```go\nfunc() {\n\ncode")
		view := block.View(80)
		assert.Contains(t, view, "code")
		assert.Contains(t, view, "text")
	})

	t.Run("update is a no-op", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		updated, cmd := block.Update(tea.KeyMsg{})
		assert.Equal(t, block, updated)
		assert.Nil(t, cmd)
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, bt.NewAssistantTextBlock(theme).View(80))
	})

	t.Run("zero width", func(t *testing.T) {
		t.Parallel()
		block := bt.NewAssistantTextBlock(theme)
		block.Append("hello world")
		assert.NotPanics(t, func() { block.View(0) })
	})
}
