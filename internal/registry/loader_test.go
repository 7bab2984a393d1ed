package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	personas := writeFile(t, dir, "personas.json", `[
		{"persona_id": "p1", "name": "Mia", "interests": ["climbing", "coffee"], "bio": "Berlin-based"},
		{"persona_id": "p2", "name": "Alex", "interests": ["jazz"]}
	]`)
	contexts := writeFile(t, dir, "contexts.jsonl",
		`{"context_id": "c1", "persona_id": "p1", "use_case": "UC1_COLD_OPEN"}

{"context_id": "c2", "persona_id": "p2", "use_case": "UC4_BOUNDARY"}
`)
	samples := writeFile(t, dir, "samples.jsonl",
		`{"sample_id": "s1", "context_id": "c1", "use_case": "UC1_COLD_OPEN", "user_text": "hey there"}
{"sample_id": "s2", "context_id": "c2", "use_case": "UC4_BOUNDARY", "user_text": "no worries"}
`)

	reg, err := Load(personas, contexts, samples)
	require.NoError(t, err)

	assert.Len(t, reg.Personas, 2)
	assert.Len(t, reg.Contexts, 2) // the blank line is skipped
	assert.Len(t, reg.Samples, 2)

	t.Run("lookups resolve known ids", func(t *testing.T) {
		p := reg.PersonaByID("p1")
		require.NotNil(t, p)
		assert.Equal(t, "Mia", p.Name)
		assert.Equal(t, []string{"climbing", "coffee"}, p.Interests)

		c := reg.ContextByID("c2")
		require.NotNil(t, c)
		assert.Equal(t, "p2", c.PersonaID)
		assert.Equal(t, UseCaseBoundary, c.UseCase)
	})

	t.Run("unknown ids return nil", func(t *testing.T) {
		assert.Nil(t, reg.PersonaByID("p999"))
		assert.Nil(t, reg.ContextByID("c999"))
	})
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	goodPersonas := writeFile(t, dir, "personas.json", `[{"persona_id": "p1", "name": "Mia"}]`)
	goodContexts := writeFile(t, dir, "contexts.jsonl", `{"context_id": "c1", "persona_id": "p1", "use_case": "UC1_COLD_OPEN"}`)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"), goodContexts, goodContexts)
		assert.Error(t, err)
	})

	t.Run("malformed persona json", func(t *testing.T) {
		bad := writeFile(t, dir, "bad_personas.json", `{"not": "an array"}`)
		_, err := LoadPersonas(bad)
		assert.Error(t, err)
	})

	t.Run("malformed jsonl line reports the line number", func(t *testing.T) {
		bad := writeFile(t, dir, "bad_samples.jsonl",
			`{"sample_id": "s1", "context_id": "c1", "user_text": "ok"}
not json at all
`)
		_, err := LoadSamples(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("a bad line poisons the whole load", func(t *testing.T) {
		bad := writeFile(t, dir, "bad_contexts.jsonl", "{broken\n")
		_, err := Load(goodPersonas, bad, goodContexts)
		assert.Error(t, err)
	})
}
