package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims surrounding whitespace and caps the result at maxLen
// bytes without splitting a multibyte rune.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := 0
	for cut < len(trimmed) {
		_, size := utf8.DecodeRuneInString(trimmed[cut:])
		if cut+size > maxLen {
			break
		}
		cut += size
	}
	return trimmed[:cut]
}
