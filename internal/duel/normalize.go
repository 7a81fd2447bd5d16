package duel

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize reduces free-typed answer text to a comparable token: lowercase,
// accents stripped, runs of non-alphanumerics collapsed to single spaces,
// trimmed. "É MITO!" and "  é   mito " compare equal after this.
func Normalize(s string) string {
	lowered := strings.ToLower(s)

	// The transformer chain keeps internal buffers, so build it per call
	// instead of sharing one across goroutines.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, lowered)
	if err != nil {
		stripped = lowered
	}

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, stripped)

	return strings.Join(strings.Fields(mapped), " ")
}
