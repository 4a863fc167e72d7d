package entity

import (
	"encoding/json"
	"math"
	"strconv"
)

// Direction selects a pagination cursor.
type Direction int

const (
	Next Direction = iota
	Prev
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Cursor is an opaque continuation token: the method, endpoint and parameters that fetch the
// adjacent page. It is only meaningful against the server and endpoint that produced it.
type Cursor struct {
	Method   string         `json:"method"`
	Endpoint string         `json:"endpoint"`
	Params   map[string]any `json:"params"`
}

// Clone returns a copy whose parameter map can be modified independently.
func (c *Cursor) Clone() *Cursor {
	if c == nil {
		return nil
	}
	params := make(map[string]any, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return &Cursor{Method: c.Method, Endpoint: c.Endpoint, Params: params}
}

// Map returns the dict-shaped form used in persisted envelopes.
func (c *Cursor) Map() map[string]any {
	return map[string]any{
		"method":   c.Method,
		"endpoint": c.Endpoint,
		"params":   c.Clone().Params,
	}
}

// CursorFromMap recognises anything carrying method, endpoint and params keys as a cursor. The
// value may be a decoded JSON object or a generic Entity. Integral JSON numbers in params
// become int64.
func CursorFromMap(v any) (*Cursor, bool) {
	var m map[string]any
	switch x := v.(type) {
	case map[string]any:
		m = x
	case *Entity:
		if x == nil {
			return nil, false
		}
		m = x.wireMap()
	default:
		return nil, false
	}

	method, ok := m["method"].(string)
	if !ok {
		return nil, false
	}
	endpoint, ok := m["endpoint"].(string)
	if !ok {
		return nil, false
	}
	var raw map[string]any
	switch p := m["params"].(type) {
	case map[string]any:
		raw = p
	case *Entity:
		if p != nil {
			raw = p.wireMap()
		}
	case nil:
	default:
		return nil, false
	}

	params := make(map[string]any, len(raw))
	for k, val := range raw {
		params[k] = plainParam(val)
	}
	return &Cursor{Method: method, Endpoint: endpoint, Params: params}, true
}

func plainParam(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case ID:
		return string(x)
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = plainParam(it)
		}
		return out
	}
	return v
}

// BoundaryParam parses a boundary string taken from a Link header: purely numeric values become
// int64, anything else is kept as an opaque string.
func BoundaryParam(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// List is an ordered collection returned by a paginated endpoint. Next and Prev are nil when
// the server signalled no further data in that direction.
type List struct {
	Items []any
	Type  *Type
	Next  *Cursor
	Prev  *Cursor
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Entities returns the items that are entities, in order.
func (l *List) Entities() []*Entity {
	if l == nil {
		return nil
	}
	out := make([]*Entity, 0, len(l.Items))
	for _, it := range l.Items {
		if e, ok := it.(*Entity); ok {
			out = append(out, e)
		}
	}
	return out
}

// Cursor returns the cursor for dir.
func (l *List) Cursor(dir Direction) *Cursor {
	if l == nil {
		return nil
	}
	if dir == Prev {
		return l.Prev
	}
	return l.Next
}

// SetCursors attaches the continuation cursors and mirrors them onto the boundary elements: the
// forward cursor onto the last item and the backward cursor onto the first, when those are
// entities.
func (l *List) SetCursors(next, prev *Cursor) {
	l.attach(next, prev)
}

func (l *List) attach(next, prev *Cursor) {
	l.Next, l.Prev = next, prev
	if len(l.Items) == 0 {
		return
	}
	if last, ok := l.Items[len(l.Items)-1].(*Entity); ok && last != nil && next != nil {
		last.SetCursor(Next, next)
	}
	if first, ok := l.Items[0].(*Entity); ok && first != nil && prev != nil {
		first.SetCursor(Prev, prev)
	}
}

// MarshalJSON writes the items as a plain JSON array. Cursors only travel in the ToJSON
// envelope.
func (l *List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	items := l.Items
	if items == nil {
		items = []any{}
	}
	return json.Marshal(items)
}
