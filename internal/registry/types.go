// Package registry loads the static persona/context/sample records that a
// batch run joins together. Records are immutable once loaded.
package registry

// Persona is one synthetic chat profile.
type Persona struct {
	PersonaID string   `json:"persona_id"`
	Name      string   `json:"name"`
	Interests []string `json:"interests"`
	Bio       string   `json:"bio,omitempty"`
}

// Context binds a conversational scenario to a persona.
type Context struct {
	ContextID string `json:"context_id"`
	PersonaID string `json:"persona_id"`
	UseCase   string `json:"use_case"`
}

// Sample is one raw user turn to be scored.
type Sample struct {
	SampleID  string `json:"sample_id"`
	ContextID string `json:"context_id"`
	UseCase   string `json:"use_case"`
	UserText  string `json:"user_text"`
}

// Known use-case labels. Anything else is treated as UseCaseUnknown.
const (
	UseCaseColdOpen    = "UC1_COLD_OPEN"
	UseCaseKeepGoing   = "UC2_KEEP_GOING"
	UseCaseSuggestDate = "UC3_SUGGEST_DATE"
	UseCaseBoundary    = "UC4_BOUNDARY"
	UseCaseUnknown     = "UNKNOWN"
)
