package internal

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

func parseRegistry() *entity.Registry {
	r := entity.NewRegistry()
	r.Register(&entity.Schema{
		Name:   "Account",
		Fields: []entity.Field{entity.F("id", entity.IDType()), entity.F("acct", entity.String())},
	})
	r.Register(&entity.Schema{
		Name: "Status",
		Fields: []entity.Field{
			entity.F("id", entity.IDType()),
			entity.F("content", entity.String()),
			entity.F("in_reply_to_id", entity.Optional(entity.IDType())),
			entity.F("account", entity.Ref("Account")),
		},
	})
	return r
}

func decoded(t *testing.T, s string) any {
	t.Helper()
	v, err := decodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("decodeJSON(%s) failed: %v", s, err)
	}
	return v
}

func TestNewParser(t *testing.T) {
	if p := NewParser(nil); p.Registry() != entity.DefaultRegistry {
		t.Error("nil registry should fall back to the default registry")
	}
	r := entity.NewRegistry()
	if p := NewParser(r); p.Registry() != r {
		t.Error("expected the given registry")
	}
}

func TestParseEntity(t *testing.T) {
	parser := NewParser(parseRegistry())

	tests := []struct {
		name       string
		resp       *Response
		wantNil    bool
		wantSchema string
	}{
		{name: "nil response", resp: nil, wantNil: true},
		{name: "empty body", resp: &Response{StatusCode: http.StatusOK}, wantNil: true},
		{name: "array body", resp: &Response{Value: decoded(t, `[{"id": "1"}]`)}, wantNil: true},
		{
			name:       "typed status",
			resp:       &Response{Value: decoded(t, `{"id": "1", "content": "hi", "account": {"id": "7", "acct": "bob"}}`)},
			wantSchema: "Status",
		},
		{
			name:       "unknown shape falls back to generic",
			resp:       &Response{Value: decoded(t, `{"totally": "different"}`)},
			wantSchema: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parser.ParseEntity(tt.resp, entity.Ref("Status"))
			if tt.wantNil {
				if e != nil {
					t.Errorf("expected nil, got %v", e)
				}
				return
			}
			if e == nil {
				t.Fatal("expected an entity")
			}
			if e.SchemaName() != tt.wantSchema {
				t.Errorf("expected schema %q, got %q", tt.wantSchema, e.SchemaName())
			}
		})
	}
}

func TestParseEntity_Nested(t *testing.T) {
	parser := NewParser(parseRegistry())
	resp := &Response{Value: decoded(t, `{"id": 42, "content": "hi", "in_reply_to_id": null, "account": {"id": "7", "acct": "bob"}, "emojis": []}`)}

	e := parser.ParseEntity(resp, entity.Ref("Status"))
	if id := e.Value("id"); id != entity.ID("42") {
		t.Errorf("expected numeric id to become ID(\"42\"), got %#v", id)
	}
	if e.Value("in_reply_to_id") != nil {
		t.Errorf("expected nil in_reply_to_id, got %#v", e.Value("in_reply_to_id"))
	}
	acct, ok := e.Value("account").(*entity.Entity)
	if !ok || acct.SchemaName() != "Account" {
		t.Fatalf("expected nested Account, got %#v", e.Value("account"))
	}
	if acct.Value("acct") != "bob" {
		t.Errorf("unexpected acct %#v", acct.Value("acct"))
	}
	if _, err := e.Get("emojis"); err != nil {
		t.Errorf("extra key should be preserved: %v", err)
	}
}

func TestParseList(t *testing.T) {
	parser := NewParser(parseRegistry())
	next := &entity.Cursor{Method: http.MethodGet, Endpoint: "api/v1/timelines/home", Params: map[string]any{"max_id": int64(1)}}
	prev := &entity.Cursor{Method: http.MethodGet, Endpoint: "api/v1/timelines/home", Params: map[string]any{"min_id": int64(3)}}

	resp := &Response{Value: decoded(t, `[{"id": "3"}, {"id": "2"}, {"id": "1"}]`), Next: next, Prev: prev}
	l := parser.ParseList(resp, entity.PaginatableList(entity.Ref("Status")))
	if l.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", l.Len())
	}
	if l.Next != next || l.Prev != prev {
		t.Error("expected response cursors on the list")
	}

	items := l.Entities()
	if items[len(items)-1].Cursor(entity.Next) == nil {
		t.Error("expected next cursor mirrored on the last element")
	}
	if items[0].Cursor(entity.Prev) == nil {
		t.Error("expected prev cursor mirrored on the first element")
	}
	if items[1].Cursor(entity.Next) != nil || items[1].Cursor(entity.Prev) != nil {
		t.Error("inner elements carry no cursors")
	}

	empty := parser.ParseList(&Response{Value: decoded(t, `{"error": "not a list"}`)}, entity.PaginatableList(entity.Ref("Status")))
	if empty == nil || empty.Len() != 0 {
		t.Errorf("expected an empty list for a non-array response, got %+v", empty)
	}
}

func TestParse_PlainList(t *testing.T) {
	parser := NewParser(parseRegistry())
	v := parser.Parse(&Response{Value: decoded(t, `[{"id": "1"}]`)}, entity.ListOf(entity.Ref("Account")))
	items, ok := v.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected a plain slice, got %T", v)
	}
	if e, ok := items[0].(*entity.Entity); !ok || e.SchemaName() != "Account" {
		t.Errorf("expected Account element, got %#v", items[0])
	}
}

func TestDecodeJSON(t *testing.T) {
	v, err := decodeJSON([]byte(`{"n": 12345678901234567890}`))
	if err != nil {
		t.Fatalf("decodeJSON failed: %v", err)
	}
	if n := v.(map[string]any)["n"]; n != json.Number("12345678901234567890") {
		t.Errorf("expected number to be kept verbatim, got %#v", n)
	}
	if _, err := decodeJSON([]byte(`{} {}`)); err == nil {
		t.Error("expected trailing data to be rejected")
	}
}
