package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders prompt prefix and text", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserMessageBlock("hello world", bt.NewStyles(drip.DefaultTheme()))
		view := block.View(80)
		assert.Contains(t, view, "> ")
		assert.Contains(t, view, "hello world")
	})

	t.Run("wraps long text to width", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		block := bt.NewUserMessageBlock(long, bt.NewStyles(drip.DefaultTheme()))
		view := block.View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})

	t.Run("continuation lines hang under the marker", func(t *testing.T) {
		t.Parallel()
		long := "short words that keep going and going beyond the viewport width easily"
		lines := strings.Split(bt.NewUserMessageBlock(long, bt.NewStyles(drip.DefaultTheme())).View(30), "\n")
		for _, line := range lines[1:] {
			assert.True(t, strings.HasPrefix(line, "  "), "unindented line %q", line)
		}
	})

	t.Run("token count after totals", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserMessageBlock("hi", bt.NewStyles(drip.DefaultTheme()))
		assert.NotContains(t, block.View(80), "tokens")
		block.SetTokens(12)
		assert.Contains(t, block.View(80), "12 tokens")
	})

	t.Run("escape sequences are removed", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserMessageBlock("\x1b[31mred\x1b[0m", bt.NewStyles(drip.DefaultTheme()))
		assert.NotContains(t, block.View(80), "\x1b[31m")
		assert.Contains(t, block.View(80), "red")
	})
}
