// Package rubric implements the heuristic conversational-quality rubric:
// six bounded sub-scores derived from keyword tables, aggregated into an
// overall conversational quality (OCQ) score in [0,1].
package rubric

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Tables holds every keyword list and length limit the scorer consults.
// Keeping these as data (rather than inline literals) makes the rubric
// enumerable and overridable from a YAML file.
type Tables struct {
	// Length limits for the clarity dimension.
	MaxClearLength       int `yaml:"max_clear_length"`
	MinSubstantiveLength int `yaml:"min_substantive_length"`
	MinAttemptLength     int `yaml:"min_attempt_length"`

	// Whole-word interrogatives that count as engagement.
	Interrogatives []string `yaml:"interrogatives"`

	// Secondary profile cues checked when neither the persona name nor an
	// interest keyword matches.
	BioCues []string `yaml:"bio_cues"`

	RudeMarkers         []string `yaml:"rude_markers"`
	ObjectifyingMarkers []string `yaml:"objectifying_markers"`
	PoliteMarkers       []string `yaml:"polite_markers"`

	// Boundary-pressure phrases that zero the safety dimension.
	UnsafeMarkers []string `yaml:"unsafe_markers"`

	// De-escalation phrases that earn full safety credit in the
	// boundary-setting use case.
	DeescalationMarkers []string `yaml:"deescalation_markers"`

	// Concrete-plan phrases for the date-suggestion use case.
	PlanMarkers []string `yaml:"plan_markers"`
}

// DefaultTables returns the embedded rubric tables.
func DefaultTables() Tables {
	var t Tables
	// The embedded defaults are compile-time data; a decode failure here is
	// a programming error.
	if err := yaml.Unmarshal(defaultTablesYAML, &t); err != nil {
		panic(fmt.Sprintf("rubric: invalid embedded tables: %v", err))
	}
	return t
}

// LoadTables reads rubric tables from a YAML file. Fields omitted in the
// file keep their embedded default values.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read rubric tables: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse rubric tables %s: %w", path, err)
	}
	return t, nil
}
