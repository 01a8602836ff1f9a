package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeSpace replaces every run of whitespace, including newlines, with a
// single space. Leading and trailing runs are collapsed, not removed.
// Bytes that are not valid UTF-8 are copied through unchanged.
func NormalizeSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		} else {
			inSpace = false
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
