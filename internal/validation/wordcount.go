package validation

import "strings"

// CountWords returns the number of whitespace-separated words in text.
// Empty or whitespace-only text has zero words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
