// Package compliance provides a stateless scanner that flags prohibited
// phrases in free-form agent notes. It only reports; callers decide policy
// (currently log-and-allow), so the checker itself never blocks an action.
package compliance

import "strings"

// prohibitedPhrases is the fixed list of absolutist language agents may not
// use on calls. Matching is case-insensitive substring.
var prohibitedPhrases = []string{
	"guarantee",
	"guaranteed",
	"promise",
	"promised",
	"definitely will",
	"always",
	"never",
	"100%",
	"risk-free",
	"no risk",
	"assure you",
	"certainly will",
}

// Violation is a single prohibited phrase found in the scanned text.
type Violation struct {
	Phrase string `json:"phrase"`
}

// Scan returns one violation per prohibited phrase present in the text.
// An empty result means the text is clean.
func Scan(text string) []Violation {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	lower := strings.ToLower(trimmed)
	var violations []Violation
	for _, phrase := range prohibitedPhrases {
		if strings.Contains(lower, phrase) {
			violations = append(violations, Violation{Phrase: phrase})
		}
	}
	return violations
}

// Phrases returns the phrases found, for persisting as compliance flags.
func Phrases(violations []Violation) []string {
	if len(violations) == 0 {
		return nil
	}
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Phrase)
	}
	return out
}
