package normalize

import "strings"

// Truncate strips line breaks and caps text at limit runes, marking the cut
// with an ellipsis. Idempotent: already-short text passes through unchanged.
func Truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
