package search

import (
	"strings"
	"unicode/utf8"
)

// Highlight returns a window of at most maxLen characters of content around the
// first keyword occurrence, with "..." marking cut ends. maxLen <= 0 returns
// content as-is.
func Highlight(content string, keywords []string, maxLen int) string {
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}
	lower := strings.ToLower(content)
	start := 0
	for _, k := range keywords {
		if i := strings.Index(lower, k); i >= 0 {
			start = utf8.RuneCountInString(lower[:i]) - maxLen/4
			break
		}
	}
	if start > len(runes)-maxLen {
		start = len(runes) - maxLen
	}
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}
