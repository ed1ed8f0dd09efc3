package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lowerTurkish lowercases s using the Turkish case table, so dotted and
// dotless I fold the way spoken Turkish expects: 'İ' becomes 'i' and 'I'
// becomes 'ı'. strings.ToLower alone folds both to 'i', which breaks
// keyword matching for recognized text containing uppercase Turkish words.
func lowerTurkish(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, s)
}

// capitalizeTurkish uppercases the first rune of s using the Turkish case
// table ("istanbul" becomes "İstanbul") and leaves the rest untouched.
func capitalizeTurkish(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.TurkishCase.ToUpper(r)) + s[size:]
}

// without returns utterance with the first occurrence of phrase removed and
// the result trimmed. Both arguments must already be lowercased. When phrase
// does not occur, the trimmed utterance is returned unchanged.
func without(utterance, phrase string) string {
	idx := strings.Index(utterance, phrase)
	if idx < 0 {
		return strings.TrimSpace(utterance)
	}
	return strings.TrimSpace(utterance[:idx] + utterance[idx+len(phrase):])
}
