package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, 250, tables.MaxClearLength)
	assert.Equal(t, 12, tables.MinSubstantiveLength)
	assert.Equal(t, 8, tables.MinAttemptLength)
	assert.Contains(t, tables.Interrogatives, "what")
	assert.Contains(t, tables.UnsafeMarkers, "send nudes")
	assert.Contains(t, tables.PlanMarkers, "coffee")
	assert.NotEmpty(t, tables.DeescalationMarkers)
}

func TestLoadTables(t *testing.T) {
	t.Run("file values overlay the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rubric.yaml")
		content := "max_clear_length: 100\nrude_markers:\n  - lame\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		tables, err := LoadTables(path)
		require.NoError(t, err)

		assert.Equal(t, 100, tables.MaxClearLength)
		assert.Equal(t, []string{"lame"}, tables.RudeMarkers)
		// Fields the file omits keep their embedded defaults.
		assert.Equal(t, 12, tables.MinSubstantiveLength)
		assert.Contains(t, tables.PoliteMarkers, "thanks")
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_clear_length: [not an int"), 0644))

		_, err := LoadTables(path)
		assert.Error(t, err)
	})
}
