package rubric

import (
	"strings"
	"unicode/utf8"

	"rapport/internal/registry"
)

// MaxTotal is the maximum attainable sub-score sum (six dimensions, 0-2 each).
const MaxTotal = 12

// Scores holds the six rubric sub-scores, each in 0-2.
type Scores struct {
	Engagement int `json:"ENG"`
	ContextRef int `json:"CTX"`
	Tone       int `json:"TONE"`
	Clarity    int `json:"CLAR"`
	Safety     int `json:"SAFE"`
	Move       int `json:"MOVE"`
}

// Total returns the sub-score sum in 0-12.
func (s Scores) Total() int {
	return s.Engagement + s.ContextRef + s.Tone + s.Clarity + s.Safety + s.Move
}

// OCQ returns the overall conversational quality: Total normalized to [0,1].
func (s Scores) OCQ() float64 {
	return float64(s.Total()) / float64(MaxTotal)
}

// Violation reports the derived safety-violation flag: 1 iff the safety
// sub-score is 0, else 0.
func (s Scores) Violation() int {
	if s.Safety == 0 {
		return 1
	}
	return 0
}

// Score evaluates one user turn against the rubric. It is pure and
// deterministic: identical inputs always produce identical scores.
func (t Tables) Score(userText string, persona registry.Persona, context registry.Context) Scores {
	text := strings.TrimSpace(userText)
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	// Length limits are in characters, not bytes.
	length := utf8.RuneCountInString(text)

	var s Scores

	// CLAR: length heuristic. Empty or overlong turns score 0.
	switch {
	case length == 0 || length > t.MaxClearLength:
		s.Clarity = 0
	case length < t.MinSubstantiveLength:
		s.Clarity = 1
	default:
		s.Clarity = 2
	}

	// ENG: a question mark or a whole-word interrogative.
	switch {
	case strings.Contains(text, "?") || containsAnyWord(words, t.Interrogatives):
		s.Engagement = 2
	case length >= t.MinSubstantiveLength:
		s.Engagement = 1
	default:
		s.Engagement = 0
	}

	// CTX: persona name, then interest keywords, then bio cues.
	name := strings.ToLower(persona.Name)
	switch {
	case name != "" && strings.Contains(lower, name):
		s.ContextRef = 2
	case countContained(lower, persona.Interests) >= 1:
		s.ContextRef = 2
	case containsAny(lower, t.BioCues):
		s.ContextRef = 1
	default:
		s.ContextRef = 0
	}

	// TONE: rude or objectifying markers zero it; polite markers max it.
	switch {
	case containsAny(lower, t.RudeMarkers) || containsAny(lower, t.ObjectifyingMarkers):
		s.Tone = 0
	case containsAny(lower, t.PoliteMarkers):
		s.Tone = 2
	default:
		s.Tone = 1
	}

	// SAFE: boundary-pressure markers zero it. De-escalation language only
	// earns full credit in the boundary-setting use case.
	switch {
	case containsAny(lower, t.UnsafeMarkers):
		s.Safety = 0
	case context.UseCase == registry.UseCaseBoundary && containsAny(lower, t.DeescalationMarkers):
		s.Safety = 2
	default:
		s.Safety = 1
	}

	// MOVE: use-case-specific progression.
	switch context.UseCase {
	case registry.UseCaseColdOpen:
		if s.Engagement >= 1 {
			s.Move = 2
		} else {
			s.Move = 1
		}
	case registry.UseCaseKeepGoing:
		switch {
		case s.Engagement >= 1 && length >= t.MinSubstantiveLength:
			s.Move = 2
		case length >= t.MinAttemptLength:
			s.Move = 1
		default:
			s.Move = 0
		}
	case registry.UseCaseSuggestDate:
		if containsAny(lower, t.PlanMarkers) && s.Safety != 0 {
			s.Move = 2
		} else {
			s.Move = 1
		}
	case registry.UseCaseBoundary:
		switch s.Safety {
		case 2:
			s.Move = 2
		case 0:
			s.Move = 0
		default:
			s.Move = 1
		}
	default:
		s.Move = 1
	}

	return s
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func countContained(lower string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			hits++
		}
	}
	return hits
}

func containsAnyWord(words []string, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
