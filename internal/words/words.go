// internal/words/words.go
//
// Text helpers shared by the word game and puzzle validation.
//
// Responsibilities:
//   - Normalize guesses and target words (trim, NFC, upper-case).
//   - Count and validate letters by rune, not by byte, so Kazakh Cyrillic
//     letters (Ә, Ғ, Қ, Ң, Ө, Ұ, Ү, Һ, І) count as one letter each.
//
// Constraints:
//   • Word-game words are exactly Length letters.
//   • Upper-casing follows Kazakh rules (golang.org/x/text/cases).

package words

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Length is the number of letters in a word-game word.
const Length = 5

// Normalize trims s, composes it to NFC and upper-cases it.
// A Caser is stateful, so a fresh one is built per call.
func Normalize(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Upper(language.Kazakh).String(s)
}

// Len returns the number of letters (runes) in s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// IsLetters reports whether s is non-empty and every rune is a letter.
func IsLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Valid reports whether s, once normalized, is a playable word.
func Valid(s string) bool {
	n := Normalize(s)
	return Len(n) == Length && IsLetters(n)
}
