package indexer

import "unicode"

// Normalize cleans raw extracted text for chunking and keyword matching.
// Whitespace runs become one space; every rune other than ASCII letters, digits,
// space and . , ( ) – - ? is dropped; the result is trimmed. Dropped runes never
// separate two spaces, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	out := make([]rune, 0, len(text))
	pendingSpace := false
	for _, r := range text {
		if isSpace(r) {
			pendingSpace = true
			continue
		}
		if !keepRune(r) {
			continue
		}
		if pendingSpace && len(out) > 0 {
			out = append(out, ' ')
		}
		pendingSpace = false
		out = append(out, r)
	}
	return string(out)
}

// isSpace reports Unicode White_Space runes other than U+0085 (NEL), plus the
// byte order mark U+FEFF.
func isSpace(r rune) bool {
	switch r {
	case '\u0085':
		return false
	case '\uFEFF':
		return true
	}
	return unicode.IsSpace(r)
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '.', ',', '(', ')', '–', '-', '?':
		return true
	}
	return false
}
