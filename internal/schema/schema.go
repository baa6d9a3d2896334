package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Method describes one method the worker serves.
type Method struct {
	Name        string
	Description string
	Params      *jsonschema.Schema

	// ReadOnly marks methods that do not change anything on the host.
	ReadOnly bool
}

type entry struct {
	method   Method
	resolved *jsonschema.Resolved
}

// Registry maps method names to their parameter schemas.
//
// Registry implements protocol.ParamsValidator. Methods without a
// registered schema are not validated.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry, 16),
	}
}

// Register adds or replaces a method. The params schema is resolved once
// here so validation never re-parses it.
func (r *Registry) Register(m Method) error {
	if m.Name == "" {
		return fmt.Errorf("method name is required")
	}

	if m.Params == nil {
		m.Params = ObjectSchema(nil)
	}

	resolved, err := m.Params.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema for %q: %w", m.Name, err)
	}

	r.mu.Lock()
	r.entries[m.Name] = &entry{method: m, resolved: resolved}
	r.mu.Unlock()

	return nil
}

// RegisterSchemas registers a bare schema per method name.
func (r *Registry) RegisterSchemas(schemas map[string]*jsonschema.Schema) error {
	for _, name := range slices.Sorted(maps.Keys(schemas)) {
		if err := r.Register(Method{Name: name, Params: schemas[name]}); err != nil {
			return err
		}
	}

	return nil
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Method{}, false
	}

	return e.method, true
}

// Methods returns every registered method sorted by name.
func (r *Registry) Methods() []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]Method, 0, len(r.entries))
	for _, name := range slices.Sorted(maps.Keys(r.entries)) {
		methods = append(methods, r.entries[name].method)
	}

	return methods
}

// ValidateParams checks params against the schema registered for method.
//
// params is first round-tripped through encoding/json so structs and maps
// are validated exactly as the worker will see them. Nil params are
// validated as an empty object.
func (r *Registry) ValidateParams(method string, params any) error {
	r.mu.RLock()
	e, ok := r.entries[method]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	instance, err := toInstance(params)
	if err != nil {
		return err
	}

	return e.resolved.Validate(instance)
}

func toInstance(params any) (any, error) {
	if params == nil {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}

	return instance, nil
}
