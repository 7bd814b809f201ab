// Package similarity scores topical overlap between two text blobs
// using tokenization, stop-word filtering, and Jaccard set overlap.
package similarity

import (
	"strings"
	"unicode"
)

const minTokenLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "they": {}, "from": {}, "will": {}, "what": {},
	"when": {}, "where": {}, "who": {}, "which": {}, "been": {}, "were": {},
	"their": {}, "there": {}, "would": {}, "could": {}, "should": {},
	"about": {}, "just": {}, "like": {}, "some": {}, "than": {}, "then": {},
	"them": {}, "these": {}, "those": {}, "into": {}, "over": {}, "also": {},
	"its": {}, "your": {}, "any": {}, "how": {}, "now": {}, "get": {},
	"got": {}, "did": {}, "does": {}, "doing": {}, "because": {}, "very": {},
	"still": {}, "here": {}, "more": {},
}

// Tokenize lower-cases text, strips non-alphanumerics, and drops tokens
// shorter than three characters or in the stop-word set.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < minTokenLength {
			continue
		}
		if _, ok := stopWords[field]; ok {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range Tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}

// Jaccard computes the Jaccard similarity of the token sets of a and b.
// Two empty sets score zero.
func Jaccard(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
