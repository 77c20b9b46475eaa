package bubbletea

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// sanitize makes producer text safe to print inside the viewport: escape
// sequences are stripped and control characters other than tab and newline
// are dropped. CRLF becomes LF; a lone CR overwrites the line from column 0
// as a terminal would.
func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' || r > 0x1F {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if !strings.ContainsRune(s, '\r') {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.ContainsRune(line, '\r') {
			lines[i] = overwrite(line)
		}
	}
	return strings.Join(lines, "\n")
}

// overwrite applies each CR-separated segment over the previous ones.
// Characters past the end of a shorter segment survive.
func overwrite(line string) string {
	segments := strings.Split(line, "\r")
	buf := []rune(segments[0])
	for _, seg := range segments[1:] {
		for j, r := range []rune(seg) {
			if j < len(buf) {
				buf[j] = r
			} else {
				buf = append(buf, r)
			}
		}
	}
	return string(buf)
}
