package adversarial_tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jamesprial/go-mastodon-api-wrapper/adversarial_tests/helpers"
	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/test_helpers"
)

func castStatuses(t *testing.T, payload string) []*entity.Entity {
	t.Helper()
	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("failed to unmarshal test JSON: %v", err)
	}
	l, ok := entity.Cast(types.StatusListType, raw).(*entity.List)
	if !ok {
		t.Fatalf("payload did not cast to a list")
	}
	return l.Entities()
}

// TestNestedReblogs tests that a long chain of boosts is decoded all the way down
func TestNestedReblogs(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for _, depth := range []int{1, 10, 200} {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			tc := test_helpers.NewTestClient(t, nil)
			tc.MockServer().SetResponse("/api/v1/statuses/1", &test_helpers.MockResponse{
				Body: generator.GenerateNestedReblogs(depth),
			})

			st, err := tc.Status(context.Background(), "1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			levels := 0
			for {
				rb, ok := st.Reblog()
				if !ok {
					break
				}
				st = rb
				levels++
			}
			if levels != depth {
				t.Errorf("followed %d boosts, want %d", levels, depth)
			}
			if st.Content() != "original" {
				t.Errorf("innermost content = %q, want original", st.Content())
			}
		})
	}
}

// TestMalformedStatuses tests that payloads of the wrong shape degrade instead of failing
func TestMalformedStatuses(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for i, payload := range generator.GenerateMalformedStatuses() {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			tc := test_helpers.NewTestClient(t, nil)
			tc.MockServer().SetResponse("/api/v1/statuses/1", &test_helpers.MockResponse{Body: payload})

			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("panic on %s: %v", payload, r)
				}
			}()

			st, err := tc.Status(context.Background(), "1")
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", payload, err)
			}
			if st.Entity == nil {
				return
			}

			// Every accessor must tolerate whatever the cast produced.
			_ = st.ID()
			_ = st.Content()
			_ = st.CreatedAt()
			_ = st.Account().Acct()
			_ = st.MediaAttachments()
			_ = st.Tags()
			_, _ = st.Reblog()
			_, _ = st.Poll()
		})
	}
}

// TestInvalidJSON tests that documents which are not JSON become API errors carrying the body
func TestInvalidJSON(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for i, payload := range generator.GenerateInvalidJSON() {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			tc := test_helpers.NewTestClient(t, nil)
			tc.MockServer().SetResponse("/api/v1/statuses/1", &test_helpers.MockResponse{Body: payload})

			_, err := tc.Status(context.Background(), "1")
			var apiErr *pkgerrs.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError for %s, got %v", payload, err)
			}
			if apiErr.Body != payload {
				t.Errorf("Body = %q, want %q", apiErr.Body, payload)
			}

			if _, err := entity.FromJSON([]byte(payload)); err == nil {
				t.Errorf("FromJSON accepted %s", payload)
			}
		})
	}
}

// TestMalformedTimestamps tests that unparseable creation times read as the zero time
func TestMalformedTimestamps(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for _, payload := range generator.GenerateMalformedTimestamps() {
		var raw any
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			t.Fatalf("failed to unmarshal test JSON: %v", err)
		}
		st, ok := types.AsStatus(entity.Cast(types.StatusType, raw))
		if !ok {
			t.Errorf("%s did not cast to a status", payload)
			continue
		}
		if !st.CreatedAt().IsZero() {
			t.Errorf("%s: CreatedAt = %v, want zero", payload, st.CreatedAt())
		}
	}
}

// TestUnicodeContent tests that unusual Unicode survives a cast and a serialisation round trip
func TestUnicodeContent(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	for i, content := range generator.GenerateUnicodeEdgeCases() {
		st, ok := types.AsStatus(entity.Cast(types.StatusType, map[string]any{"id": "1", "content": content}))
		if !ok {
			t.Fatalf("case %d did not cast", i)
		}

		data, err := entity.ToJSON(st.Entity)
		if err != nil {
			t.Fatalf("case %d: ToJSON: %v", i, err)
		}
		back, err := entity.FromJSON(data)
		if err != nil {
			t.Fatalf("case %d: FromJSON: %v", i, err)
		}
		again, ok := types.AsStatus(back)
		if !ok {
			t.Fatalf("case %d: round trip lost the status schema", i)
		}
		if again.Content() != content {
			t.Errorf("case %d: content changed in round trip", i)
		}
	}
}

// TestLongReplyChain tests thread building and iteration over a very deep conversation
func TestLongReplyChain(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	const length = 5000

	thread := internal.BuildThread(castStatuses(t, generator.GenerateReplyChain(length)))
	if len(thread.Roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(thread.Roots))
	}
	if thread.Count() != length {
		t.Errorf("Count() = %d, want %d", thread.Count(), length)
	}
	if thread.Depth() != length-1 {
		t.Errorf("Depth() = %d, want %d", thread.Depth(), length-1)
	}

	it := internal.NewThreadIterator(thread.Roots, &internal.ThreadIteratorOptions{DepthFirst: true, MaxDepth: 50})
	seen := 0
	for it.HasNext() {
		node, depth, err := it.Next()
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if node == nil {
			break
		}
		if depth > 50 {
			t.Fatalf("iterator went to depth %d past MaxDepth", depth)
		}
		seen++
	}
	if seen != 51 {
		t.Errorf("iterated %d statuses, want 51", seen)
	}
}

// TestReplyCycle tests that statuses replying to each other in a loop cannot hang the thread walk
func TestReplyCycle(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	thread := internal.BuildThread(castStatuses(t, generator.GenerateReplyCycle(3)))
	if len(thread.Roots) != 0 {
		t.Errorf("got %d roots, want none", len(thread.Roots))
	}
	if thread.Count() != 0 {
		t.Errorf("Count() = %d, want 0", thread.Count())
	}
	if thread.GetByID("2") == nil {
		t.Error("statuses in a cycle are still indexed")
	}
}

// TestLargeTimeline tests a full page of large statuses
func TestLargeTimeline(t *testing.T) {
	generator := helpers.NewJSONGenerator()
	tc := test_helpers.NewTestClient(t, nil)
	tc.MockServer().SetResponse("/api/v1/timelines/public", &test_helpers.MockResponse{
		Body: generator.GenerateLargeTimeline(40, 100*1024),
	})

	page, err := tc.PublicTimeline(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Len() != 40 {
		t.Fatalf("Len() = %d, want 40", page.Len())
	}
	for i, e := range page.Entities() {
		st := types.Status{Entity: e}
		if len(st.Content()) != 100*1024 {
			t.Fatalf("status %d content truncated to %d bytes", i, len(st.Content()))
		}
		if st.Account().Acct() == "" {
			t.Fatalf("status %d lost its account", i)
		}
	}
}
