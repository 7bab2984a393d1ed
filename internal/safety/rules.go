// Package safety implements the per-turn chat gate: a deterministic
// escalation rule matcher, an embedding-based violation classifier, and the
// templated safe-redirect replies used when either one fires.
package safety

import "strings"

// Rule is one deterministic escalation pattern.
type Rule struct {
	Phrase string
	Reason string
}

// RuleMatcher checks raw user text against an ordered table of obvious
// escalation phrases. It runs before (and independently of) the classifier
// so that blatant boundary pressure never depends on model availability.
type RuleMatcher struct {
	rules []Rule
}

// DefaultRules returns the built-in escalation table.
func DefaultRules() []Rule {
	return []Rule{
		{Phrase: "send nudes", Reason: "explicit_request"},
		{Phrase: "send pics", Reason: "explicit_request"},
		{Phrase: "come over tonight", Reason: "location_pressure"},
		{Phrase: "come to my place", Reason: "location_pressure"},
		{Phrase: "where do you live", Reason: "location_probe"},
		{Phrase: "what's your address", Reason: "location_probe"},
		{Phrase: "you owe me", Reason: "coercion"},
		{Phrase: "don't be shy", Reason: "boundary_pressure"},
		{Phrase: "stop being so sensitive", Reason: "boundary_pressure"},
	}
}

// NewRuleMatcher builds a matcher over the given rule table. An empty table
// falls back to the defaults.
func NewRuleMatcher(rules []Rule) *RuleMatcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleMatcher{rules: rules}
}

// Match reports whether text trips any escalation rule, and the reason for
// the first rule that fires. Matching is case-insensitive substring search.
func (m *RuleMatcher) Match(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, r := range m.rules {
		if strings.Contains(lower, r.Phrase) {
			return true, r.Reason
		}
	}
	return false, ""
}
