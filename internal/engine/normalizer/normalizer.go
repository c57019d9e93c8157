// Package normalizer converts raw words into index keys. A key keeps only
// the alphabetic runes of the word, lowercased; words with fewer than two
// letters are discarded.
package normalizer

import (
	"strings"
	"unicode"
)

// MinTokenLength is the minimum number of letters a token must keep after
// filtering to be indexed or queried.
const MinTokenLength = 2

// Fold strips every non-letter rune and lowercases the remainder. It applies
// no length filter; prefix queries accept arbitrarily short keys.
func Fold(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Normalize folds the word and reports whether the result is long enough to
// serve as an index key.
func Normalize(word string) (string, bool) {
	folded := Fold(word)
	if letterCount(folded) < MinTokenLength {
		return "", false
	}
	return folded, true
}

// Tokenize splits text on whitespace and normalizes each word, dropping
// the ones that do not survive the filter.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if token, ok := Normalize(word); ok {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func letterCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
