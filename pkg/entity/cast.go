package entity

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Outcome reports how a cast resolved. None of the outcomes is an error: casting never fails,
// it only degrades.
type Outcome int

const (
	// Matched means the value now has the runtime shape of the declared type.
	Matched Outcome = iota
	// Fallback means a mapping was kept as a generic Entity because the declared schema did not
	// fit it.
	Fallback
	// Passthrough means the value was returned as decoded, apart from turning nested objects
	// into generic entities.
	Passthrough
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Fallback:
		return "fallback"
	default:
		return "passthrough"
	}
}

// Cast converts a decoded JSON value into the runtime shape of t using DefaultRegistry.
func Cast(t *Type, v any) any {
	return DefaultRegistry.Cast(t, v)
}

// CastWithOutcome is Cast reporting how the value was resolved.
func CastWithOutcome(t *Type, v any) (any, Outcome) {
	return DefaultRegistry.CastWithOutcome(t, v)
}

// Cast converts v into the runtime shape of t. Already cast values are accepted, so casting is
// idempotent.
func (r *Registry) Cast(t *Type, v any) any {
	out, _ := r.CastWithOutcome(t, v)
	return out
}

// CastWithOutcome converts v into the runtime shape of t and reports how it resolved.
func (r *Registry) CastWithOutcome(t *Type, v any) (any, Outcome) {
	if t == nil {
		return r.castAny(v), Passthrough
	}
	switch t.Kind {
	case KindOptional:
		if v == nil {
			return nil, Matched
		}
		return r.CastWithOutcome(t.Elem, v)
	case KindList:
		return r.castList(t, v)
	case KindTuple:
		return r.castTuple(t, v)
	case KindUnion:
		for _, cand := range t.Elems {
			out, outcome := r.CastWithOutcome(cand, v)
			if r.matches(cand, out) {
				return out, outcome
			}
		}
	}
	return r.castBase(t, v)
}

func (r *Registry) castList(t *Type, v any) (any, Outcome) {
	var items []any
	var next, prev *Cursor
	switch x := v.(type) {
	case []any:
		items = x
	case *List:
		if x == nil {
			return nil, Passthrough
		}
		items = x.Items
		next, prev = x.Next, x.Prev
	default:
		return r.castBase(t, v)
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = r.Cast(t.Elem, it)
	}
	if !t.Paginatable {
		return out, Matched
	}
	l := &List{Items: out, Type: t}
	l.attach(next, prev)
	return l, Matched
}

func (r *Registry) castTuple(t *Type, v any) (any, Outcome) {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case *List:
		if x == nil {
			return nil, Passthrough
		}
		items = x.Items
	default:
		return r.castBase(t, v)
	}
	out := make([]any, len(items))
	for i, it := range items {
		if i < len(t.Elems) {
			out[i] = r.Cast(t.Elems[i], it)
		} else {
			out[i] = r.castAny(it)
		}
	}
	return out, Matched
}

// castBase applies the scalar and entity rules in order; the first rule that accepts the value
// wins. A value no rule accepts comes back unchanged.
func (r *Registry) castBase(t *Type, v any) (any, Outcome) {
	switch t.Kind {
	case KindEntity:
		if out, outcome, ok := r.castEntity(t, v); ok {
			return out, outcome
		}
	case KindID:
		if id, ok := toID(v); ok {
			return id, Matched
		}
	case KindBool:
		if b, ok := toBool(v); ok {
			return b, Matched
		}
	case KindTime:
		if tm, ok := toTime(v); ok {
			return tm, Matched
		}
	case KindInt:
		if n, ok := toInt(v); ok {
			return n, Matched
		}
	case KindFloat:
		if f, ok := toFloat(v); ok {
			return f, Matched
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, Matched
		}
	}
	return r.castAny(v), Passthrough
}

func (r *Registry) castEntity(t *Type, v any) (any, Outcome, bool) {
	var m map[string]any
	switch x := v.(type) {
	case *Entity:
		if x == nil {
			return nil, Passthrough, false
		}
		if t.Schema == "" || x.SchemaName() == t.Schema {
			return x, Matched, true
		}
		m = x.wireMap()
	case map[string]any:
		m = x
	default:
		return nil, Passthrough, false
	}

	if t.Schema == "" {
		return r.generic(m), Matched, true
	}
	s, ok := r.Lookup(t.Schema)
	if !ok || !fits(s, m) {
		if e, isEntity := v.(*Entity); isEntity {
			return e, Fallback, true
		}
		return r.generic(m), Fallback, true
	}
	return r.construct(s, m), Matched, true
}

// fits reports whether m carries at least one declared field of s, which is the bar for typed
// construction.
func fits(s *Schema, m map[string]any) bool {
	if len(s.Fields) == 0 {
		return true
	}
	for k := range m {
		if _, ok := s.fieldForWire(k); ok {
			return true
		}
	}
	return false
}

// castAny normalises a value without a declared type: objects become generic entities and
// arrays are walked.
func (r *Registry) castAny(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return r.generic(x)
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = r.castAny(it)
		}
		return out
	default:
		return v
	}
}

// matches reports whether v has the runtime shape of t. Element types of sequences are not
// inspected.
func (r *Registry) matches(t *Type, v any) bool {
	switch t.Kind {
	case KindAny:
		return true
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		_, ok := v.(int64)
		return ok
	case KindFloat:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindTime:
		_, ok := v.(time.Time)
		return ok
	case KindID:
		_, ok := v.(ID)
		return ok
	case KindEntity:
		e, ok := v.(*Entity)
		if !ok || e == nil {
			return false
		}
		return t.Schema == "" || e.SchemaName() == t.Schema
	case KindList:
		if t.Paginatable {
			l, ok := v.(*List)
			return ok && l != nil
		}
		_, ok := v.([]any)
		return ok
	case KindTuple:
		s, ok := v.([]any)
		return ok && len(s) == len(t.Elems)
	case KindOptional:
		return v == nil || r.matches(t.Elem, v)
	case KindUnion:
		for _, c := range t.Elems {
			if r.matches(c, v) {
				return true
			}
		}
	}
	return false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case nil:
		return false, false
	case bool:
		return x, true
	case string:
		switch strings.ToLower(x) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return x != "", true
	}
	return truthy(v), true
}

// truthy follows the usual dynamic-language rules: zero numbers and empty containers are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case *Entity:
		return x != nil
	case *List:
		return x != nil && len(x.Items) > 0
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case int, int32, int64, json.Number, float64:
		if n, ok := toInt(x); ok {
			return unixTime(n)
		}
		return time.Time{}, false
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return unixTime(n)
		}
		tm, err := cast.ToTimeInDefaultLocationE(x, time.UTC)
		if err != nil || !marshalableYear(tm) {
			return time.Time{}, false
		}
		return tm, true
	}
	return time.Time{}, false
}

// unixTime converts epoch seconds, refusing times that cannot be written back as RFC 3339.
func unixTime(sec int64) (time.Time, bool) {
	tm := time.Unix(sec, 0).UTC()
	if !marshalableYear(tm) {
		return time.Time{}, false
	}
	return tm, true
}

func marshalableYear(tm time.Time) bool {
	return tm.Year() >= 0 && tm.Year() <= 9999
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(x)
	}
	return 0, false
}

// floatToInt accepts whole numbers inside the int64 range.
func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}
