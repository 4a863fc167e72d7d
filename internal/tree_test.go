package internal

import (
	"testing"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// status builds a generic status entity with an optional parent and author.
func status(id, parent, account string) *entity.Entity {
	m := map[string]any{"id": id, "account": map[string]any{"id": account}}
	if parent != "" {
		m["in_reply_to_id"] = parent
	}
	return parseRegistry().New("Status", m)
}

// testThread is:
//
//	1
//	├── 2
//	│   └── 4
//	└── 3
//	5
func testThread() *Thread {
	return BuildThread([]*entity.Entity{
		status("1", "", "alice"),
		status("2", "1", "bob"),
		status("3", "1", "alice"),
		status("4", "2", "carol"),
		status("5", "999", "bob"),
	})
}

func ids(nodes []*entity.Entity) []string {
	out := make([]string, len(nodes))
	for i, s := range nodes {
		id, _ := s.Value("id").(entity.ID)
		out[i] = string(id)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildThread(t *testing.T) {
	th := testThread()
	if len(th.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(th.Roots))
	}
	if th.Roots[0].ID() != "1" || th.Roots[1].ID() != "5" {
		t.Errorf("unexpected roots %s, %s", th.Roots[0].ID(), th.Roots[1].ID())
	}
	if got := th.GetByID("4"); got == nil || got.Parent.ID() != "2" {
		t.Errorf("expected 4 to be a reply to 2")
	}
	if th.GetByID("404") != nil {
		t.Error("unknown id should yield nil")
	}
	if th.Count() != 5 {
		t.Errorf("expected 5 statuses, got %d", th.Count())
	}
	if th.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", th.Depth())
	}
}

func TestBuildThread_Duplicates(t *testing.T) {
	th := BuildThread([]*entity.Entity{status("1", "", "a"), status("1", "", "a"), nil, status("2", "2", "a")})
	if th.Count() != 2 {
		t.Errorf("expected duplicates and nil to be dropped, got %d", th.Count())
	}
	if len(th.Roots) != 2 {
		t.Errorf("a self reply is a root, got %d roots", len(th.Roots))
	}
}

func TestThread_FlattenFilterFind(t *testing.T) {
	th := testThread()

	if got := ids(th.Flatten()); !equalStrings(got, []string{"1", "2", "4", "3", "5"}) {
		t.Errorf("unexpected depth first order %v", got)
	}

	byBob := th.GetByAccount("bob")
	if got := ids(byBob); !equalStrings(got, []string{"2", "5"}) {
		t.Errorf("unexpected statuses by bob %v", got)
	}

	n := th.Find(func(s *entity.Entity) bool { return s.Value("id") == entity.ID("3") })
	if n == nil || n.Parent.ID() != "1" {
		t.Errorf("expected to find 3 under 1")
	}
	if th.Find(func(*entity.Entity) bool { return false }) != nil {
		t.Error("expected nil when nothing matches")
	}
}

func TestThreadIterator(t *testing.T) {
	tests := []struct {
		name       string
		opts       *ThreadIteratorOptions
		wantIDs    []string
		wantDepths []int
	}{
		{
			name:       "default depth first",
			opts:       nil,
			wantIDs:    []string{"1", "2", "4", "3", "5"},
			wantDepths: []int{0, 1, 2, 1, 0},
		},
		{
			name:       "breadth first",
			opts:       &ThreadIteratorOptions{DepthFirst: false},
			wantIDs:    []string{"1", "5", "2", "3", "4"},
			wantDepths: []int{0, 0, 1, 1, 2},
		},
		{
			name:       "max depth",
			opts:       &ThreadIteratorOptions{DepthFirst: true, MaxDepth: 1},
			wantIDs:    []string{"1", "2", "3", "5"},
			wantDepths: []int{0, 1, 1, 0},
		},
		{
			name: "filtered",
			opts: &ThreadIteratorOptions{DepthFirst: true, FilterFunc: func(s *entity.Entity) bool {
				acct, _ := s.Value("account").(*entity.Entity)
				return acct.Value("id") == entity.ID("alice")
			}},
			wantIDs:    []string{"1", "3"},
			wantDepths: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewThreadIterator(testThread().Roots, tt.opts)
			var gotIDs []string
			var gotDepths []int
			for it.HasNext() {
				n, depth, err := it.Next()
				if err != nil {
					break
				}
				gotIDs = append(gotIDs, string(n.ID()))
				gotDepths = append(gotDepths, depth)
			}
			if !equalStrings(gotIDs, tt.wantIDs) {
				t.Errorf("expected order %v, got %v", tt.wantIDs, gotIDs)
			}
			if len(gotDepths) != len(tt.wantDepths) {
				t.Fatalf("expected depths %v, got %v", tt.wantDepths, gotDepths)
			}
			for i := range gotDepths {
				if gotDepths[i] != tt.wantDepths[i] {
					t.Errorf("expected depths %v, got %v", tt.wantDepths, gotDepths)
					break
				}
			}
			if _, _, err := it.Next(); err == nil {
				t.Error("expected an error once exhausted")
			}
		})
	}
}
