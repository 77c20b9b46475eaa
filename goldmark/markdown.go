// Package goldmark renders markdown completion text to ANSI-styled terminal
// output using goldmark for parsing and lipgloss for styling.
package goldmark

import "github.com/fwojciec/drip"

// DefaultWidth is used when the caller passes a non-positive width.
const DefaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width. Code blocks
// keep their lines as written.
func Render(source string, width int, theme drip.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return newRenderer(theme).render([]byte(source), width)
}
