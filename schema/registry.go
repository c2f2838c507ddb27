package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrUnknownSchema indicates no schema is registered under the name.
	ErrUnknownSchema = errors.New("unknown extraction schema")

	// ErrInstanceInvalid indicates an extracted instance failed schema
	// validation.
	ErrInstanceInvalid = errors.New("instance does not conform to schema")
)

// entry pairs the raw schema text (for prompt embedding) with its compiled
// form (for validation).
type entry struct {
	raw      string
	compiled *jsonschema.Schema
}

// Registry holds the named extraction schemas configured for the engine.
// It is safe for concurrent use after construction; Register is typically
// called only during startup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register compiles and stores a schema under the given name, replacing any
// previous registration.
func (r *Registry) Register(name, schemaJSON string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("schema name cannot be empty")
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema %q: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", name, err)
	}

	r.mu.Lock()
	r.entries[name] = entry{raw: schemaJSON, compiled: compiled}
	r.mu.Unlock()
	return nil
}

// LoadDir registers every *.json file in dir under its base name
// (without extension).
func (r *Registry) LoadDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		if err := r.Register(name, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// SchemaJSON returns the raw schema text for prompt embedding.
// Implements ai.SchemaSource.
func (r *Registry) SchemaJSON(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.raw, ok
}

// Names returns the registered schema names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Validate checks an extracted instance against the named schema.
func (r *Registry) Validate(name, instanceJSON string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}

	var instance any
	if err := json.Unmarshal([]byte(instanceJSON), &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInstanceInvalid, err)
	}
	if err := e.compiled.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInstanceInvalid, err)
	}
	return nil
}
