package entities

import "sort"

// ScamWordlist maps lowercase tokens to the score added per occurrence.
// The special token "tld" matches top-level-domain looking suffixes such as ".com".
type ScamWordlist map[string]float64

// ScamAnalysis is the result of scoring a message
type ScamAnalysis struct {
	Score   float64
	Matches map[string]int
}

// Exceeds reports whether the score reaches the threshold
func (a ScamAnalysis) Exceeds(threshold float64) bool {
	return a.Score > 0 && a.Score >= threshold
}

// SortedTokens returns matched tokens in a stable order
func (a ScamAnalysis) SortedTokens() []string {
	tokens := make([]string, 0, len(a.Matches))
	for token := range a.Matches {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}
