package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Labels emitted by the classifier. MOVE means the turn should be diverted
// to a safety-repair reply; OK means it may reach the chat model.
const (
	LabelMove = "MOVE"
	LabelOK   = "OK"
)

// Exemplar is one labeled training turn with its embedding.
type Exemplar struct {
	Text   string    `json:"text"`
	Label  string    `json:"label"`
	Vector []float32 `json:"vector"`
}

// Model is the on-disk form of the violation classifier: the embedding
// engine it was trained with, a default decision threshold, and the labeled
// exemplar vectors scored against at inference time.
type Model struct {
	Engine     string     `json:"engine"`
	Dimensions int        `json:"dimensions"`
	Threshold  float64    `json:"threshold"`
	TopK       int        `json:"top_k"`
	Exemplars  []Exemplar `json:"exemplars"`
}

// LoadModel reads a classifier model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read safety model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse safety model %s: %w", path, err)
	}
	if len(m.Exemplars) == 0 {
		return nil, fmt.Errorf("safety model %s has no exemplars", path)
	}
	for i, ex := range m.Exemplars {
		if ex.Label != LabelMove && ex.Label != LabelOK {
			return nil, fmt.Errorf("safety model %s: exemplar %d has unknown label %q", path, i, ex.Label)
		}
		if m.Dimensions > 0 && len(ex.Vector) != m.Dimensions {
			return nil, fmt.Errorf("safety model %s: exemplar %d has %d dimensions, want %d",
				path, i, len(ex.Vector), m.Dimensions)
		}
	}
	return &m, nil
}

// Save writes the model file, creating the output directory if needed.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal safety model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write safety model: %w", err)
	}
	return nil
}
