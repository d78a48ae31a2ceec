package textanalysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	hashtagRegex       = regexp.MustCompile(`[#\x{FF03}]`)
	usernameRegex      = regexp.MustCompile(`\B[@\x{FF20}][a-z0-9_]{1,20}`)
	emailRegex         = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,4}\b`)
	emojiRegex         = regexp.MustCompile(`[\x{10000}-\x{10FFFF}]`)
	miscSymbolsRegex   = regexp.MustCompile(`[\x{20A0}-\x{27BF}]`)
	controlSpaceRegex  = regexp.MustCompile(`[\n\t\r]`)
	multipleSpaceRegex = regexp.MustCompile(`\s\s+`)
)

// Sanitize prepares text for analysis: hashtag marks, usernames, e-mail
// addresses, emoji and miscellaneous symbols are removed, whitespace is
// collapsed and the result lowercased.
func Sanitize(text string) string {
	s := hashtagRegex.ReplaceAllString(text, " ")
	s = usernameRegex.ReplaceAllString(s, "")
	s = emailRegex.ReplaceAllString(s, "")
	s = emojiRegex.ReplaceAllString(s, " ")
	s = miscSymbolsRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = controlSpaceRegex.ReplaceAllString(s, " ")
	s = multipleSpaceRegex.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// Replacement is written in place of characters the store does not keep.
const Replacement = '◽'

// SanitizeForStorage replaces invalid UTF-8 and characters outside the
// Basic Multilingual Plane with Replacement and drops NUL bytes.
func SanitizeForStorage(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		switch {
		case r == 0:
		case r == utf8.RuneError && size == 1, r > 0xFFFF:
			b.WriteRune(Replacement)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
