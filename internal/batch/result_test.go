package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport/internal/rubric"
)

func TestWriteReadRows(t *testing.T) {
	scores := rubric.Scores{Engagement: 2, ContextRef: 1, Tone: 1, Clarity: 2, Safety: 1, Move: 2}
	ocq := scores.OCQ()
	viol := scores.Violation()

	in := []ResultRow{
		{
			RunID: "r1", SampleID: "s1", ContextID: "c1", UseCase: "UC1_COLD_OPEN",
			PersonaID: "p1", UserText: "hey, what's up?",
			Scores: &scores, OCQ: &ocq, SafeViolation: &viol,
			Timestamp: "2025-06-01T10:30:00",
		},
		{
			RunID: "r1", SampleID: "s2", ContextID: "c_gone", UseCase: "UC1_COLD_OPEN",
			Error: "Missing context_id=c_gone",
		},
	}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	require.NoError(t, WriteRows(path, in))

	out, err := ReadRows(path)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("rows changed across write/read (-want +got):\n%s", diff)
	}
}

func TestWriteRowsCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "batch_results.jsonl")
	require.NoError(t, WriteRows(path, []ResultRow{
		{RunID: "r1", SampleID: "s1", ContextID: "c1", UseCase: "UC1_COLD_OPEN"},
	}))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadRowsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	content := `{"run_id": "r1", "sample_id": "s1", "context_id": "c1", "use_case": "UC1_COLD_OPEN"}
{broken
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := ReadRows(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
