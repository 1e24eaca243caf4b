package signals

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Tokenize splits free-form text into lower-cased tokens with unicode
// normalization and combining-mark folding, so "Café" and "cafe" produce the
// same token. Punctuation never survives tokenization.
func Tokenize(text string) []string {
	// transform.Chain carries state, so build it per call.
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		folded = bare
	}
	return strings.Fields(folded)
}

// NormalizeText returns the canonical single-spaced form of text used for
// exact fingerprinting.
func NormalizeText(text string) string {
	return strings.Join(Tokenize(text), " ")
}
