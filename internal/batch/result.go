// Package batch runs the rubric over a sample set, joining each sample to
// its context and persona and emitting one line-delimited result row per
// sample. Missing joins become error rows; the batch itself never fails on
// a bad reference.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rapport/internal/rubric"
)

// ResultRow is one output record. Success rows carry scores and the derived
// aggregates; error rows carry only the join message and identifiers.
type ResultRow struct {
	RunID     string `json:"run_id"`
	SampleID  string `json:"sample_id"`
	ContextID string `json:"context_id"`
	UseCase   string `json:"use_case"`
	PersonaID string `json:"persona_id,omitempty"`
	UserText  string `json:"user_text,omitempty"`

	Scores        *rubric.Scores `json:"scores,omitempty"`
	OCQ           *float64       `json:"ocq,omitempty"`
	SafeViolation *int           `json:"safe_violation,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`

	Error string `json:"error,omitempty"`
}

// IsError reports whether the row records a failed join.
func (r ResultRow) IsError() bool {
	return r.Error != ""
}

// Scored reports whether the row carries a usable aggregate score.
func (r ResultRow) Scored() bool {
	return !r.IsError() && r.OCQ != nil
}

// WriteRows writes rows as line-delimited JSON, creating the output
// directory if needed.
func WriteRows(path string, rows []ResultRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode result row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}

// ReadRows reads a results artifact back. Malformed lines are fatal.
func ReadRows(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	var rows []ResultRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row ResultRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("failed to parse results line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
