package decide

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	titleWordLimit   = 8
	titleMaxLength   = 96
	placeholderTitle = "New discussion"
)

// FallbackTitle derives a thread title from message content: the first
// eight words, stripped of punctuation other than word characters and
// hyphens, first letter capitalized, truncated to 96 characters.
func FallbackTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}

	kept := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
				return r
			}
			return -1
		}, word)
		if cleaned != "" {
			kept = append(kept, cleaned)
		}
	}

	title := strings.Join(kept, " ")
	if title == "" {
		return placeholderTitle
	}

	first, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(first)) + title[size:]

	if utf8.RuneCountInString(title) > titleMaxLength {
		runes := []rune(title)
		title = string(runes[:titleMaxLength]) + "…"
	}
	return title
}
