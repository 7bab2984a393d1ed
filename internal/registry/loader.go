package registry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Registry holds the loaded record tables with id-keyed lookups.
type Registry struct {
	Personas []Persona
	Contexts []Context
	Samples  []Sample

	personaByID map[string]*Persona
	contextByID map[string]*Context
}

// Load reads all three record files and builds the lookup tables.
// A malformed record anywhere is a fatal parse failure.
func Load(personasPath, contextsPath, samplesPath string) (*Registry, error) {
	personas, err := LoadPersonas(personasPath)
	if err != nil {
		return nil, err
	}
	contexts, err := LoadContexts(contextsPath)
	if err != nil {
		return nil, err
	}
	samples, err := LoadSamples(samplesPath)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		Personas:    personas,
		Contexts:    contexts,
		Samples:     samples,
		personaByID: make(map[string]*Persona, len(personas)),
		contextByID: make(map[string]*Context, len(contexts)),
	}
	for i := range r.Personas {
		r.personaByID[r.Personas[i].PersonaID] = &r.Personas[i]
	}
	for i := range r.Contexts {
		r.contextByID[r.Contexts[i].ContextID] = &r.Contexts[i]
	}
	return r, nil
}

// PersonaByID returns the persona for id, or nil if unknown.
func (r *Registry) PersonaByID(id string) *Persona {
	return r.personaByID[id]
}

// ContextByID returns the context for id, or nil if unknown.
func (r *Registry) ContextByID(id string) *Context {
	return r.contextByID[id]
}

// LoadPersonas reads a JSON array of personas.
func LoadPersonas(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}
	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("failed to parse personas file %s: %w", path, err)
	}
	return personas, nil
}

// LoadContexts reads a JSONL file of contexts.
func LoadContexts(path string) ([]Context, error) {
	var contexts []Context
	err := readJSONL(path, func(line []byte) error {
		var c Context
		if err := json.Unmarshal(line, &c); err != nil {
			return err
		}
		contexts = append(contexts, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load contexts from %s: %w", path, err)
	}
	return contexts, nil
}

// LoadSamples reads a JSONL file of samples.
func LoadSamples(path string) ([]Sample, error) {
	var samples []Sample
	err := readJSONL(path, func(line []byte) error {
		var s Sample
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load samples from %s: %w", path, err)
	}
	return samples, nil
}

// readJSONL calls fn for every non-blank line. The first decode error aborts
// the read; partial batches are never returned.
func readJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}
