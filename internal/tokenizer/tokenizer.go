// Package tokenizer provides text tokenisation for document sources. It
// lower-cases input, splits on non-alphanumeric boundaries, removes
// stop-words, and drops tokens outside a sane length range.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTokenLen = 2
	maxTokenLen = 15
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Tokenize breaks text into normalised tokens, preserving in-text order.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if n < minTokenLen || n > maxTokenLen {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
