package service

import (
	"strings"
	"unicode"
)

// NormalizeHandle lowers a display name or requested handle into the
// canonical form the backend servers use: lower-case words joined by single
// dashes, with word breaks at non-alphanumeric runs and at letter/digit
// boundaries. Case carries no meaning: "Alice 01" becomes "alice-01",
// "JohnDoe" becomes "johndoe", "foo1bar" becomes "foo-1-bar". The function
// is idempotent: a value already in canonical form maps to itself.
func NormalizeHandle(input string) string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(input)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if i > 0 && boundary(runes[i-1], r) {
				flush()
			}
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return strings.Join(words, "-")
}

// boundary reports whether a new word starts at curr: a letter/digit
// transition in either direction.
func boundary(prev, curr rune) bool {
	prevDigit, currDigit := unicode.IsDigit(prev), unicode.IsDigit(curr)
	return (prevDigit && unicode.IsLetter(curr)) || (unicode.IsLetter(prev) && currDigit)
}
