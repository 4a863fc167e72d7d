package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malicious and malformed JSON for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateNestedReblogs creates a status boosting a status boosting a status, depth levels deep
func (g *JSONGenerator) GenerateNestedReblogs(depth int) string {
	var b strings.Builder
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&b, `{"id": "%d", "content": "boost %d", "reblog": `, depth-i, i)
	}
	b.WriteString(`{"id": "0", "content": "original", "reblog": null}`)
	b.WriteString(strings.Repeat("}", depth))
	return b.String()
}

// GenerateReplyChain creates a context payload where every status replies to the one before
func (g *JSONGenerator) GenerateReplyChain(length int) string {
	parts := make([]string, 0, length)
	for i := 1; i <= length; i++ {
		reply := "null"
		if i > 1 {
			reply = fmt.Sprintf(`"%d"`, i-1)
		}
		parts = append(parts, fmt.Sprintf(`{"id": "%d", "in_reply_to_id": %s, "content": "reply %d"}`, i, reply, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GenerateReplyCycle creates statuses that reply to each other in a loop
func (g *JSONGenerator) GenerateReplyCycle(length int) string {
	parts := make([]string, 0, length)
	for i := 1; i <= length; i++ {
		parent := i - 1
		if parent == 0 {
			parent = length
		}
		parts = append(parts, fmt.Sprintf(`{"id": "%d", "in_reply_to_id": "%d"}`, i, parent))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GenerateMalformedStatuses creates status payloads with the wrong shape or broken syntax
func (g *JSONGenerator) GenerateMalformedStatuses() []string {
	return []string{
		// Wrong top level shape
		`[]`,
		`"a string"`,
		`12345`,
		`null`,
		`true`,

		// Completely empty
		`{}`,

		// Nested objects with the wrong shape
		`{"id": "1", "account": []}`,
		`{"id": "1", "account": "alice"}`,
		`{"id": "1", "reblog": 5}`,
		`{"id": "1", "media_attachments": {"0": {"id": "2"}}}`,
		`{"id": "1", "media_attachments": [null, 1, "x"]}`,
		`{"id": "1", "tags": [[[]]]}`,
		`{"id": "1", "poll": {"options": "yes"}}`,

		// Ids of every shape
		`{"id": null}`,
		`{"id": {}}`,
		`{"id": ["1"]}`,
		`{"id": 1.5}`,
		`{"id": -1}`,
		`{"id": 1e400}`,
	}
}

// GenerateInvalidJSON creates documents that are not JSON at all
func (g *JSONGenerator) GenerateInvalidJSON() []string {
	return []string{
		// Just opening brace
		`{`,

		// Unclosed object
		`{"id": "1", "account": {"id": "2"`,

		// Missing comma
		`{"id": "1" "content": "x"}`,

		// Trailing comma
		`{"id": "1",}`,

		// Missing quotes
		`{id: "1"}`,

		// Single quotes
		`{'id': '1'}`,

		// Trailing data
		`{"id": "1"} garbage`,

		// Invalid escape
		`{"content": "\x41"}`,
	}
}

// GenerateMalformedTimestamps creates created_at values no parser should accept
func (g *JSONGenerator) GenerateMalformedTimestamps() []string {
	return []string{
		`{"id": "1", "created_at": ""}`,
		`{"id": "1", "created_at": "yesterday"}`,
		`{"id": "1", "created_at": "2024-13-45T99:99:99Z"}`,
		`{"id": "1", "created_at": []}`,
		`{"id": "1", "created_at": {}}`,
		`{"id": "1", "created_at": true}`,
	}
}

// GenerateLargeTimeline creates a JSON array of count statuses, each with a body of bodySize bytes
func (g *JSONGenerator) GenerateLargeTimeline(count, bodySize int) string {
	body := strings.Repeat("x", bodySize)
	parts := make([]string, 0, count)
	for i := count; i >= 1; i-- {
		parts = append(parts, fmt.Sprintf(`{"id": "%d", "content": "%s", "account": {"id": "a%d", "acct": "user%d"}}`, i, body, i%7, i%7))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GenerateUnicodeEdgeCases returns status contents with unusual Unicode
func (g *JSONGenerator) GenerateUnicodeEdgeCases() []string {
	return []string{
		"\u0000",                     // null character
		"\u200b\u200c\u200d",         // zero width characters
		"\u202e\u202d",               // bidi overrides
		"\U0001F418\U0001F418",       // emoji
		"e\u0301\u0301\u0301",        // stacked combining marks
		"\ufeffbom",                  // byte order mark
		strings.Repeat("日本語", 1000), // long multibyte text
	}
}
