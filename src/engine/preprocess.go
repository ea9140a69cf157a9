package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeContent normalizes text to NFKC form and strips NUL,
// zero-width, and other invisible characters commonly used to evade
// pattern matching. Returns the cleaned text and how many characters
// were removed.
func normalizeContent(content string) (string, int) {
	normalized := norm.NFKC.String(content)

	var b strings.Builder
	b.Grow(len(normalized))

	removed := 0
	for _, r := range normalized {
		if shouldStrip(r) {
			removed++
			continue
		}
		b.WriteRune(r)
	}

	return b.String(), removed
}

// shouldStrip returns true for characters to drop before scanning.
// Strips Unicode categories Cf (format), Co (private use), and Cc
// (control) — except for common whitespace characters.
func shouldStrip(r rune) bool {
	if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
		return false
	}

	return unicode.In(r,
		unicode.Cf, // Format (zero-width joiners, directional marks, etc.)
		unicode.Co, // Private use
		unicode.Cc, // Control (including NUL)
	)
}
