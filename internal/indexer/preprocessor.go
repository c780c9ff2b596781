package indexer

import (
	"strings"
	"unicode"
)

// Preprocess cleans extracted text before it is stored: invisible format
// characters (soft hyphens, zero-width spaces) and control characters are
// dropped, and each whitespace run becomes a single space.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.Is(unicode.Cf, r), unicode.IsControl(r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
