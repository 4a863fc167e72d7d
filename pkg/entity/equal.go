package entity

import (
	"encoding/json"
	"time"
)

// Equal reports whether two cast values hold the same data. Entities compare by schema, declared
// fields and extras; cursors are ignored. Times compare as instants, and numbers compare by
// value whether they are int64, float64 or json.Number.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Entity:
		y, ok := b.(*Entity)
		return ok && entityEqual(x, y)
	case *List:
		y, ok := b.(*List)
		if !ok || (x == nil) != (y == nil) {
			return false
		}
		return x == nil || sliceEqual(x.Items, y.Items)
	case []any:
		y, ok := b.([]any)
		return ok && sliceEqual(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case ID:
		switch y := b.(type) {
		case ID:
			return x == y
		case string:
			return string(x) == y
		}
		return false
	case int64, int, float64, json.Number:
		return numberEqual(a, b)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, present := y[k]
			if !present || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return a == b
}

func entityEqual(a, b *Entity) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.SchemaName() != b.SchemaName() {
		return false
	}
	if a.schema != nil {
		for _, f := range a.schema.Fields {
			if !Equal(a.fields[f.Name], b.fields[f.Name]) {
				return false
			}
		}
	}
	if len(a.extra) != len(b.extra) {
		return false
	}
	for k, v := range a.extra {
		w, ok := b.extra[k]
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

func sliceEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func numberEqual(a, b any) bool {
	if x, ok := toInt(a); ok {
		if y, ok := toInt(b); ok {
			return x == y
		}
	}
	x, okA := toFloat(a)
	y, okB := toFloat(b)
	return okA && okB && x == y
}
