// Package crisis flags free-text input that may indicate elevated
// self-harm risk. The phrase table is a coarse triage heuristic, not a
// validated clinical instrument, and makes no claim of being exhaustive.
package crisis

import "strings"

// RiskPhrases is the data-driven rule set consulted by Detect. Matching is
// case-insensitive substring containment so minor inflections are still
// caught. Extend the table rather than adding control flow.
var RiskPhrases = []string{
	"suicide",
	"kill myself",
	"don't want to live",
	"end my life",
	"want to die",
	"not worth living",
	"give up",
}

// Detect reports whether the text contains any configured risk phrase.
// Empty input is never a crisis.
func Detect(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, phrase := range RiskPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
