package search

import "strings"

// Keywords lowercases the query, drops every byte that is not an ASCII letter,
// digit or space, and returns the distinct whitespace-separated words with at
// least minLen characters, in first-seen order.
func Keywords(query string, minLen int) []string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	keywords := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < minLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

// Score counts how many keywords occur as substrings of text, ignoring case.
// A keyword counts once no matter how often it occurs.
func Score(text string, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	score := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			score++
		}
	}
	return score
}
