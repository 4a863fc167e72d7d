package entity

import (
	"fmt"
	"sync"
)

// Field declares one typed field of a schema.
type Field struct {
	Name string
	Type *Type
}

// F is shorthand for declaring a Field.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// Schema describes one concrete entity variant.
type Schema struct {
	Name   string
	Fields []Field

	// Renames maps a field name to the wire name used in JSON, for wire names that are not
	// usable field names (camelCase documents, "@context", "schema:value").
	Renames map[string]string

	// Redirects maps a convenience field to a dotted path through nested entities.
	Redirects map[string]string

	index    map[string]int
	wireToFd map[string]string
}

func (s *Schema) build() {
	s.index = make(map[string]int, len(s.Fields))
	s.wireToFd = make(map[string]string, len(s.Fields))
	for i, f := range s.Fields {
		s.index[f.Name] = i
		s.wireToFd[s.WireName(f.Name)] = f.Name
	}
}

// Declares reports whether name is a declared field of the schema.
func (s *Schema) Declares(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// FieldType returns the declared type of name, or nil.
func (s *Schema) FieldType(name string) *Type {
	if s == nil {
		return nil
	}
	if i, ok := s.index[name]; ok {
		return s.Fields[i].Type
	}
	return nil
}

// WireName translates a field name into its JSON key.
func (s *Schema) WireName(field string) string {
	if s != nil {
		if w, ok := s.Renames[field]; ok {
			return w
		}
	}
	return field
}

// fieldForWire translates a JSON key into the declared field name, if any.
func (s *Schema) fieldForWire(wire string) (string, bool) {
	if s == nil {
		return "", false
	}
	f, ok := s.wireToFd[wire]
	return f, ok
}

// Registry holds the schemas the cast engine can resolve by name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// DefaultRegistry is the registry used by the package level Cast, New and FromJSON helpers.
var DefaultRegistry = NewRegistry()

// Register indexes the schema and makes it resolvable. Registering a name twice replaces the
// earlier schema.
func (r *Registry) Register(s *Schema) *Schema {
	if s == nil || s.Name == "" {
		panic("entity: schema must have a name")
	}
	for _, f := range s.Fields {
		if f.Type == nil {
			panic(fmt.Sprintf("entity: field %s.%s has no type", s.Name, f.Name))
		}
	}
	s.build()

	r.mu.Lock()
	r.schemas[s.Name] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Register adds s to DefaultRegistry.
func Register(s *Schema) *Schema {
	return DefaultRegistry.Register(s)
}
