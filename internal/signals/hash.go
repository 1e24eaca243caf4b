package signals

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// FuzzyTopTokens is how many dominant tokens feed the fuzzy digest.
const FuzzyTopTokens = 20

// HashText fingerprints the normalized form of text. Case, surrounding
// whitespace, and punctuation do not change the digest; any change in token
// content does.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// FuzzyHash digests the sorted top-N tokens longer than two characters, by
// frequency. Near-duplicate texts that share their dominant tokens converge
// to the same digest regardless of token order.
func FuzzyHash(text string) string {
	counts := map[string]int{}
	for _, tok := range Tokenize(text) {
		if len(tok) > 2 {
			counts[tok]++
		}
	}
	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	// Highest frequency first; ties broken lexically so the cut is stable.
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > FuzzyTopTokens {
		tokens = tokens[:FuzzyTopTokens]
	}
	sort.Strings(tokens)
	sum := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(sum[:])
}

// JaccardSimilarity is token-set overlap between two texts in [0,1].
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}
