package textanalysis

import (
	"regexp"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// runs of word characters, or runs of punctuation
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]+`)

func tokenize(text string) []string {
	return tokenRegex.FindAllString(text, -1)
}

func isAlphanumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Stems sanitizes and tokenizes text, drops English stop words and
// punctuation and stems what is left. Repeated words give repeated stems.
func Stems(text string) []string {
	var stems []string
	for _, token := range tokenize(Sanitize(text)) {
		if _, stop := englishStopwords[token]; stop {
			continue
		}
		if !isAlphanumeric(token) {
			continue
		}
		stems = append(stems, english.Stem(token, true))
	}
	return stems
}
