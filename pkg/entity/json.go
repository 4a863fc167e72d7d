package entity

import (
	"encoding/json"
	"fmt"

	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

// Envelope keys of the persisted form.
const (
	envelopeType  = "_mastodon_type"
	envelopeData  = "_mastodon_data"
	envelopeExtra = "_mastodon_extra"

	extraNext = "_pagination_next"
	extraPrev = "_pagination_prev"
)

type envelope struct {
	Type  string         `json:"_mastodon_type"`
	Data  any            `json:"_mastodon_data"`
	Extra map[string]any `json:"_mastodon_extra,omitempty"`
}

// TypeOf returns the descriptor a value would be persisted under.
func TypeOf(v any) *Type {
	switch x := v.(type) {
	case *Entity:
		return Ref(x.SchemaName())
	case *List:
		if x != nil && x.Type != nil {
			return x.Type
		}
		return PaginatableList(Generic())
	case []any:
		return ListOf(Any())
	case ID:
		return IDType()
	case bool:
		return Bool()
	case string:
		return String()
	case int64, int:
		return Int()
	case float64:
		return Float()
	}
	return Any()
}

// ToJSON serialises a cast value together with its type descriptor and, for paginated
// collections, the pagination cursors, so FromJSON can rebuild it.
func ToJSON(v any) ([]byte, error) {
	env := envelope{Type: TypeOf(v).String(), Data: v}
	if l, ok := v.(*List); ok && l != nil {
		extra := map[string]any{}
		if l.Next != nil {
			extra[extraNext] = l.Next.Map()
		}
		if l.Prev != nil {
			extra[extraPrev] = l.Prev.Map()
		}
		if len(extra) > 0 {
			env.Extra = extra
		}
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("serialise %s: %w", env.Type, err)
	}
	return b, nil
}

// FromJSON rebuilds a value written by ToJSON using DefaultRegistry.
func FromJSON(data []byte) (any, error) {
	return DefaultRegistry.FromJSON(data)
}

// FromJSON rebuilds a value written by ToJSON. Input without an envelope is cast as untyped
// JSON, so plain API payloads are accepted as well.
func (r *Registry) FromJSON(data []byte) (any, error) {
	raw, err := decode(data)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: "entity.FromJSON", Message: "invalid JSON", Err: err}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return r.castAny(raw), nil
	}
	typeName, ok := m[envelopeType].(string)
	if !ok {
		return r.castAny(raw), nil
	}
	t, err := ParseType(typeName)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: "entity.FromJSON", Message: "invalid type descriptor", Err: err}
	}

	out := r.Cast(t, m[envelopeData])
	if l, isList := out.(*List); isList {
		extra, _ := m[envelopeExtra].(map[string]any)
		next, _ := CursorFromMap(extra[extraNext])
		prev, _ := CursorFromMap(extra[extraPrev])
		l.attach(next, prev)
	}
	return out, nil
}
