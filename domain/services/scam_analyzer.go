package services

import (
	"regexp"
	"strings"
	"sync"

	"cogbot/domain/entities"
)

// TLDToken is the wordlist key that scores top-level-domain looking suffixes
const TLDToken = "tld"

var tldPattern = regexp.MustCompile(`(?i)\.[a-z]{2,}\b`)

// ScamAnalyzer scores message content against a weighted wordlist.
// Compiled token patterns are cached, so one analyzer should be shared.
type ScamAnalyzer struct {
	mu       sync.RWMutex
	wordlist entities.ScamWordlist
	patterns map[string]*regexp.Regexp
}

// NewScamAnalyzer creates an analyzer for the given wordlist
func NewScamAnalyzer(wordlist entities.ScamWordlist) *ScamAnalyzer {
	a := &ScamAnalyzer{}
	a.SetWordlist(wordlist)
	return a
}

// SetWordlist replaces the wordlist; keys are normalized to lowercase
func (a *ScamAnalyzer) SetWordlist(wordlist entities.ScamWordlist) {
	normalized := make(entities.ScamWordlist, len(wordlist))
	patterns := make(map[string]*regexp.Regexp, len(wordlist))
	for token, score := range wordlist {
		key := strings.ToLower(strings.TrimSpace(token))
		if key == "" {
			continue
		}
		normalized[key] += score
		if key != TLDToken {
			patterns[key] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.wordlist = normalized
	a.patterns = patterns
}

// Size returns the number of scored tokens
func (a *ScamAnalyzer) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.wordlist)
}

// Analyze sums the score of every token occurrence in content.
// Ordinary tokens match as whole words, case-insensitively.
func (a *ScamAnalyzer) Analyze(content string) entities.ScamAnalysis {
	analysis := entities.ScamAnalysis{Matches: map[string]int{}}
	if content == "" {
		return analysis
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for token, score := range a.wordlist {
		var count int
		if token == TLDToken {
			count = len(tldPattern.FindAllStringIndex(content, -1))
		} else {
			count = len(a.patterns[token].FindAllStringIndex(content, -1))
		}
		if count == 0 {
			continue
		}
		analysis.Score += score * float64(count)
		analysis.Matches[token] += count
	}

	return analysis
}
