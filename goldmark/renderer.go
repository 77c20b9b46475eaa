package goldmark

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/drip"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// minWidth bounds the wrap width of nested content.
const minWidth = 10

// termRenderer turns a goldmark AST into styled terminal text. Every block
// renders to a string without a trailing newline; siblings are separated by
// one blank line.
type termRenderer struct {
	parser parser.Parser

	heading   lipgloss.Style
	muted     lipgloss.Style
	bold      lipgloss.Style
	italic    lipgloss.Style
	underline lipgloss.Style
	strike    lipgloss.Style
	code      lipgloss.Style
	codeSpan  lipgloss.Style
}

func newRenderer(theme drip.Theme) *termRenderer {
	code := lipgloss.NewStyle().Background(ansiColor(theme.CodeBg))
	return &termRenderer{
		parser:    goldmark.New(goldmark.WithExtensions(extension.Strikethrough)).Parser(),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		underline: lipgloss.NewStyle().Underline(true),
		strike:    lipgloss.NewStyle().Strikethrough(true),
		code:      code,
		codeSpan:  code.Bold(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *termRenderer) render(source []byte, width int) string {
	doc := r.parser.Parse(text.NewReader(source))
	return strings.Join(r.children(doc, source, width), "\n\n")
}

// children renders the block children of node, skipping empty results.
func (r *termRenderer) children(node ast.Node, src []byte, width int) []string {
	var out []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, src, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *termRenderer) block(node ast.Node, src []byte, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(r.inline(n, src), width)
	case *ast.Heading:
		return wrap(r.heading.Render(r.inline(n, src)), width)
	case *ast.FencedCodeBlock:
		body := r.codeLines(n.Lines(), src)
		if lang := n.Language(src); len(lang) > 0 {
			return r.muted.Render(string(lang)) + "\n" + body
		}
		return body
	case *ast.CodeBlock:
		return r.codeLines(n.Lines(), src)
	case *ast.Blockquote:
		bar := r.muted.Render("▌") + " "
		body := strings.Join(r.children(n, src, max(width-2, minWidth)), "\n\n")
		return hang(body, bar, bar)
	case *ast.List:
		return r.list(n, src, width)
	case *ast.ThematicBreak:
		return "---"
	case *ast.HTMLBlock:
		return strings.TrimRight(segmentText(n.Lines(), src), "\n")
	}
	return strings.Join(r.children(node, src, width), "\n\n")
}

// codeLines puts code behind a gutter. Lines are never reflowed.
func (r *termRenderer) codeLines(lines *text.Segments, src []byte) string {
	gutter := r.muted.Render("│") + " "
	raw := strings.Split(strings.TrimRight(segmentText(lines, src), "\n"), "\n")
	for i, line := range raw {
		raw[i] = gutter + r.code.Render(line)
	}
	return strings.Join(raw, "\n")
}

// list renders items with their marker on the first line and continuation
// lines aligned under the item text. Nested lists indent by the marker.
func (r *termRenderer) list(n *ast.List, src []byte, width int) string {
	var items []string
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "- "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		inner := max(width-len(marker), minWidth)
		var parts []string
		for ic := c.FirstChild(); ic != nil; ic = ic.NextSibling() {
			if s := r.block(ic, src, inner); s != "" {
				parts = append(parts, s)
			}
		}
		items = append(items, hang(strings.Join(parts, "\n"), marker, strings.Repeat(" ", len(marker))))
	}
	return strings.Join(items, "\n")
}

func (r *termRenderer) inline(node ast.Node, src []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&b, c, src)
	}
	return b.String()
}

func (r *termRenderer) writeInline(b *strings.Builder, node ast.Node, src []byte) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(src))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.AutoLink:
		b.WriteString(r.underline.Render(string(n.URL(src))))
	case *ast.Link:
		r.writeTarget(b, r.inline(n, src), n.Destination)
	case *ast.Image:
		r.writeTarget(b, r.inline(n, src), n.Destination)
	case *ast.RawHTML:
		b.WriteString(segmentText(n.Segments, src))
	default:
		if style, ok := r.span(node); ok {
			b.WriteString(style.Render(r.inline(node, src)))
			return
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(b, c, src)
		}
	}
}

// span returns the style of inline nodes that only decorate their children.
func (r *termRenderer) span(node ast.Node) (lipgloss.Style, bool) {
	switch n := node.(type) {
	case *ast.Emphasis:
		// ***x*** parses as nested emphasis, so levels are 1 or 2.
		if n.Level == 1 {
			return r.italic, true
		}
		return r.bold, true
	case *ast.CodeSpan:
		return r.codeSpan, true
	case *east.Strikethrough:
		return r.strike, true
	}
	return lipgloss.Style{}, false
}

// writeTarget writes a link or image as its label followed by the
// destination.
func (r *termRenderer) writeTarget(b *strings.Builder, label string, dest []byte) {
	b.WriteString(r.underline.Render(label))
	b.WriteByte(' ')
	b.WriteString(r.muted.Render("(" + string(dest) + ")"))
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// hang prefixes the first line of body with first and the others with rest.
func hang(body, first, rest string) string {
	lines := strings.Split(body, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func segmentText(segs *text.Segments, src []byte) string {
	var b strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
