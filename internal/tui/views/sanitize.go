package views

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// displayPayload renders a message payload for a tview text view. Valid UTF-8
// is shown as-is minus codepoints tcell draws badly. Anything else is quoted
// so binary payloads stay on one line. Color tags are escaped either way.
func displayPayload(b []byte) string {
	if !utf8.Valid(b) {
		return tview.Escape(strconv.QuoteToGraphic(string(b)))
	}
	s := sanitizeForTerminal(string(b))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return tview.Escape(s)
}

// sanitizeForTerminal drops skin tone modifiers, zero width joiners and
// variation selectors, which break tcell's cell-width accounting.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
