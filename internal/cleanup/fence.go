package cleanup

import (
	"strings"
	"unicode"
)

const fence = "```"

// stripCodeFence: removes a leading ``` (with optional language tag) and a trailing ```.
// Each is removed only when it is a true prefix or suffix; inner fences are kept.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, fence) {
		s = strings.TrimLeftFunc(s[len(fence):], isTagRune)
	}
	if strings.HasSuffix(s, fence) {
		s = s[:len(s)-len(fence)]
	}

	return strings.TrimSpace(s)
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}
