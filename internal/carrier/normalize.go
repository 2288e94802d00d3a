package carrier

import (
	"strings"
	"unicode"
)

// Normalize reduces raw user input to canonical tracking-number form: Unicode
// letters are uppercased, digits are kept, and every other rune (whitespace,
// dashes, dots, emoji) is dropped. Normalize is total and idempotent, so it
// accepts its own output as well as anything a user pastes.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r):
			return unicode.ToUpper(r)
		case unicode.IsDigit(r):
			return r
		default:
			return -1
		}
	}, raw)
}
