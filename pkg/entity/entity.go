// Package entity implements the typed response model of the client: schema-described entities
// with attribute access, a never-failing cast engine that turns decoded JSON into entities, and
// the lossless JSON round trip used to persist them.
//
// Values held by an entity are always one of: nil, string, bool, int64, float64, json.Number,
// time.Time, ID, *Entity, []any or *List. Decoded JSON objects never survive as raw maps; an
// object that matches no schema becomes a generic Entity.
package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrFieldNotFound is returned when a name resolves to neither a field nor a redirect.
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldNotDeclared is returned when writing a field the schema does not declare.
	ErrFieldNotDeclared = errors.New("field not declared")
)

// FieldError reports a failed field access.
type FieldError struct {
	Schema string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	schema := e.Schema
	if schema == "" {
		schema = "Entity"
	}
	return fmt.Sprintf("%s.%s: %v", schema, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Entity is a typed, attribute-accessible response object. Declared fields are stored by field
// name; keys the schema does not know are kept, by wire name, in a side-channel map so they
// survive serialization.
//
// An Entity is not safe for concurrent mutation.
type Entity struct {
	schema *Schema
	reg    *Registry
	fields map[string]any
	extra  map[string]any

	next *Cursor
	prev *Cursor
}

// New builds an entity of the schema registered under name in DefaultRegistry. Values in m are
// cast against the declared field types. An unknown schema name yields a generic entity.
func New(schema string, m map[string]any) *Entity {
	return DefaultRegistry.New(schema, m)
}

// New builds an entity of the named schema from m.
func (r *Registry) New(schema string, m map[string]any) *Entity {
	if s, ok := r.Lookup(schema); ok {
		return r.construct(s, m)
	}
	return r.generic(m)
}

// NewGeneric builds an untyped entity holding every key of m.
func NewGeneric(m map[string]any) *Entity {
	return DefaultRegistry.generic(m)
}

func (r *Registry) construct(s *Schema, m map[string]any) *Entity {
	e := &Entity{
		schema: s,
		reg:    r,
		fields: make(map[string]any, len(s.Fields)),
	}
	for _, f := range s.Fields {
		raw, ok := m[s.WireName(f.Name)]
		if !ok || raw == nil {
			e.fields[f.Name] = nil
			continue
		}
		e.fields[f.Name] = r.Cast(f.Type, raw)
	}
	for k, v := range m {
		if _, declared := s.fieldForWire(k); declared {
			continue
		}
		if e.extra == nil {
			e.extra = make(map[string]any)
		}
		e.extra[k] = r.castAny(v)
	}
	return e
}

func (r *Registry) generic(m map[string]any) *Entity {
	e := &Entity{reg: r, extra: make(map[string]any, len(m))}
	for k, v := range m {
		e.extra[k] = r.castAny(v)
	}
	return e
}

// Schema returns the entity's schema, or nil for a generic entity.
func (e *Entity) Schema() *Schema { return e.schema }

// SchemaName returns the schema name, or "" for a generic entity.
func (e *Entity) SchemaName() string {
	if e == nil || e.schema == nil {
		return ""
	}
	return e.schema.Name
}

// IsGeneric reports whether the entity has no schema.
func (e *Entity) IsGeneric() bool { return e.schema == nil }

// Has reports whether name is a declared field or a stored extra key.
func (e *Entity) Has(name string) bool {
	if e == nil {
		return false
	}
	if e.schema.Declares(name) {
		return true
	}
	_, ok := e.extra[name]
	return ok
}

// Get returns the value stored under name. Declared fields that were absent from the source
// report nil without error. Names that are neither stored nor redirected report
// ErrFieldNotFound.
func (e *Entity) Get(name string) (any, error) {
	if e == nil {
		return nil, &FieldError{Field: name, Err: ErrFieldNotFound}
	}
	if e.schema.Declares(name) {
		return e.fields[name], nil
	}
	if v, ok := e.extra[name]; ok {
		return v, nil
	}
	if e.schema != nil {
		if path, ok := e.schema.Redirects[name]; ok {
			v, err := e.resolvePath(path)
			if err != nil {
				return nil, &FieldError{Schema: e.SchemaName(), Field: name, Err: err}
			}
			return v, nil
		}
	}
	return nil, &FieldError{Schema: e.SchemaName(), Field: name, Err: ErrFieldNotFound}
}

// Value is Get without the error; missing names yield nil.
func (e *Entity) Value(name string) any {
	v, _ := e.Get(name)
	return v
}

func (e *Entity) resolvePath(path string) (any, error) {
	var cur any = e
	for _, hop := range strings.Split(path, ".") {
		ent, ok := cur.(*Entity)
		if !ok || ent == nil {
			return nil, fmt.Errorf("%w: %q has no entity before %q", ErrFieldNotFound, path, hop)
		}
		v, err := ent.Get(hop)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%w: %q is empty at %q", ErrFieldNotFound, path, hop)
		}
		cur = v
	}
	return cur, nil
}

// Set stores v under a declared field after casting it against the field's declared type, so
// raw JSON-shaped maps become nested entities. Writing an undeclared field of a typed entity
// fails with ErrFieldNotDeclared. A generic entity is an open mapping and accepts any key.
func (e *Entity) Set(name string, v any) error {
	if e.schema == nil {
		if e.extra == nil {
			e.extra = make(map[string]any)
		}
		e.extra[name] = e.registry().castAny(v)
		return nil
	}
	t := e.schema.FieldType(name)
	if t == nil {
		return &FieldError{Schema: e.schema.Name, Field: name, Err: ErrFieldNotDeclared}
	}
	if v == nil {
		e.fields[name] = nil
		return nil
	}
	e.fields[name] = e.registry().Cast(t, v)
	return nil
}

func (e *Entity) registry() *Registry {
	if e.reg == nil {
		return DefaultRegistry
	}
	return e.reg
}

// Keys lists declared field names in schema order followed by the extra keys, sorted.
func (e *Entity) Keys() []string {
	var keys []string
	if e.schema != nil {
		for _, f := range e.schema.Fields {
			keys = append(keys, f.Name)
		}
	}
	return append(keys, e.ExtraKeys()...)
}

// ExtraKeys lists the keys that are not part of the schema, sorted.
func (e *Entity) ExtraKeys() []string {
	keys := make([]string, 0, len(e.extra))
	for k := range e.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extra returns a copy of the un-schematized key/value pairs.
func (e *Entity) Extra() map[string]any {
	out := make(map[string]any, len(e.extra))
	for k, v := range e.extra {
		out[k] = v
	}
	return out
}

// wireMap returns the entity's content keyed by wire name, holding the already cast values.
// Declared fields that are nil are left out, matching an absent key in the source.
func (e *Entity) wireMap() map[string]any {
	m := make(map[string]any, len(e.fields)+len(e.extra))
	for k, v := range e.extra {
		m[k] = v
	}
	if e.schema != nil {
		for _, f := range e.schema.Fields {
			if v := e.fields[f.Name]; v != nil {
				m[e.schema.WireName(f.Name)] = v
			}
		}
	}
	return m
}

// Cursor returns the pagination cursor mirrored onto this entity when it was the first (Prev)
// or last (Next) element of a paginated collection.
func (e *Entity) Cursor(dir Direction) *Cursor {
	if dir == Prev {
		return e.prev
	}
	return e.next
}

// SetCursor mirrors a collection cursor onto the entity.
func (e *Entity) SetCursor(dir Direction, c *Cursor) {
	if dir == Prev {
		e.prev = c
		return
	}
	e.next = c
}

// MarshalJSON writes the wire form: declared fields in schema order under their wire names,
// then the extra keys in sorted order.
func (e *Entity) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(val)
		return nil
	}
	if e.schema != nil {
		for _, f := range e.schema.Fields {
			if err := write(e.schema.WireName(f.Name), e.fields[f.Name]); err != nil {
				return nil, err
			}
		}
	}
	for _, k := range e.ExtraKeys() {
		if err := write(k, e.extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the entity. An entity created with New or obtained
// from the cast engine keeps its schema; a zero Entity becomes generic.
func (e *Entity) UnmarshalJSON(data []byte) error {
	raw, err := decode(data)
	if err != nil {
		return err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("entity: expected JSON object, got %T", raw)
	}
	reg := e.registry()
	var built *Entity
	if e.schema != nil {
		built = reg.construct(e.schema, m)
	} else {
		built = reg.generic(m)
	}
	*e = *built
	return nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// String renders the entity as its wire JSON.
func (e *Entity) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", e.SchemaName(), err)
	}
	return string(b)
}
