package safety

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"rapport/internal/embedding"
)

// Result is one classifier decision.
type Result struct {
	Label     string  // LabelMove or LabelOK
	PMove     float64 // similarity-weighted MOVE probability in [0,1]
	Threshold float64 // threshold the decision was made against
}

// defaultTopK bounds the neighborhood consulted per decision when the model
// file does not set one.
const defaultTopK = 8

// Classifier scores raw user text for boundary-pressure by nearest-neighbor
// search over labeled exemplar embeddings.
type Classifier struct {
	model  *Model
	engine embedding.Engine
}

// NewClassifier binds a loaded model to the embedding engine that will embed
// incoming turns. The engine must match the one the model was trained with.
func NewClassifier(model *Model, engine embedding.Engine) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("safety model is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("embedding engine is required")
	}
	if model.Engine != "" && model.Engine != engine.Name() {
		return nil, fmt.Errorf("safety model was trained with engine %q, got %q", model.Engine, engine.Name())
	}
	return &Classifier{model: model, engine: engine}, nil
}

// Score embeds text and derives a MOVE probability from the similarity-
// weighted label mix of its nearest exemplars. threshold <= 0 falls back to
// the model's default.
func (c *Classifier) Score(ctx context.Context, text string, threshold float64) (Result, error) {
	if threshold <= 0 {
		threshold = c.model.Threshold
	}

	vec, err := c.engine.Embed(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed text: %w", err)
	}

	type neighbor struct {
		label string
		sim   float64
	}
	neighbors := make([]neighbor, 0, len(c.model.Exemplars))
	for _, ex := range c.model.Exemplars {
		sim, err := embedding.CosineSimilarity(vec, ex.Vector)
		if err != nil {
			return Result{}, fmt.Errorf("exemplar dimension mismatch: %w", err)
		}
		if sim < 0 {
			sim = 0
		}
		neighbors = append(neighbors, neighbor{label: ex.Label, sim: sim})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].sim > neighbors[j].sim
	})

	topK := c.model.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}

	var total, move float64
	for _, n := range neighbors {
		total += n.sim
		if n.label == LabelMove {
			move += n.sim
		}
	}

	pMove := 0.0
	if total > 0 {
		pMove = move / total
	}

	label := LabelOK
	if pMove >= threshold {
		label = LabelMove
	}
	return Result{Label: label, PMove: pMove, Threshold: threshold}, nil
}

// LabeledExample is one training record before embedding.
type LabeledExample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// LoadLabeledExamples reads training records from a JSONL file. Each line
// holds {"text": ..., "label": "MOVE"|"OK"}. Malformed lines are fatal.
func LoadLabeledExamples(path string) ([]LabeledExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labeled examples: %w", err)
	}
	defer f.Close()

	var examples []LabeledExample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex LabeledExample
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return nil, fmt.Errorf("failed to parse labeled example at line %d: %w", lineNo, err)
		}
		if ex.Label != LabelMove && ex.Label != LabelOK {
			return nil, fmt.Errorf("line %d: unknown label %q (want MOVE or OK)", lineNo, ex.Label)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("no labeled examples in %s", path)
	}
	return examples, nil
}

// Train embeds the labeled examples and assembles a classifier model.
func Train(ctx context.Context, engine embedding.Engine, examples []LabeledExample, threshold float64) (*Model, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("no labeled examples to train on")
	}

	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}

	vectors, err := engine.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed training examples: %w", err)
	}
	if len(vectors) != len(examples) {
		return nil, fmt.Errorf("engine returned %d vectors for %d examples", len(vectors), len(examples))
	}

	exemplars := make([]Exemplar, len(examples))
	for i, ex := range examples {
		exemplars[i] = Exemplar{Text: ex.Text, Label: ex.Label, Vector: vectors[i]}
	}

	return &Model{
		Engine:     engine.Name(),
		Dimensions: engine.Dimensions(),
		Threshold:  threshold,
		TopK:       defaultTopK,
		Exemplars:  exemplars,
	}, nil
}
