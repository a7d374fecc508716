// Package wordlist loads the weighted scam wordlist used by the scam heuristic.
package wordlist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cogbot/domain/entities"

	log "github.com/sirupsen/logrus"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

//go:embed default_wordlist.json5
var defaultWordlist []byte

// Default returns the embedded wordlist
func Default() (entities.ScamWordlist, error) {
	return Parse(defaultWordlist)
}

// Load reads the wordlist at path, or the embedded list when path is empty
func Load(path string) (entities.ScamWordlist, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wordlist %s: %w", path, err)
	}

	words, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wordlist %s: %w", path, err)
	}

	log.WithFields(log.Fields{
		"path":   path,
		"tokens": len(words),
	}).Info("Loaded scam wordlist")
	return words, nil
}

// Parse decodes a JSON5 object of token -> score. Tokens are lowercased; blank tokens
// and non-numeric scores are skipped.
func Parse(data []byte) (entities.ScamWordlist, error) {
	var raw map[string]any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid wordlist: %w", err)
	}

	words := make(entities.ScamWordlist, len(raw))
	for token, value := range raw {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		score, ok := value.(float64)
		if !ok {
			log.WithField("token", token).Warn("Skipping wordlist token with non-numeric score")
			continue
		}
		words[token] = score
	}
	return words, nil
}
