package internal

import (
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// ThreadNode is one status of a conversation together with its direct replies.
type ThreadNode struct {
	Status  *entity.Entity
	Parent  *ThreadNode
	Replies []*ThreadNode
}

// ID returns the status id of the node.
func (n *ThreadNode) ID() entity.ID {
	id, _ := n.Status.Value("id").(entity.ID)
	return id
}

func inReplyTo(status *entity.Entity) entity.ID {
	id, _ := status.Value("in_reply_to_id").(entity.ID)
	return id
}

// Thread provides utility methods for working with the reply tree of a status.
type Thread struct {
	Roots []*ThreadNode
	index map[entity.ID]*ThreadNode
}

// BuildThread links statuses into reply trees using in_reply_to_id. Statuses whose parent is
// not among them become roots. Input order is kept among siblings.
func BuildThread(statuses []*entity.Entity) *Thread {
	t := &Thread{index: make(map[entity.ID]*ThreadNode, len(statuses))}
	nodes := make([]*ThreadNode, 0, len(statuses))
	for _, s := range statuses {
		if s == nil {
			continue
		}
		n := &ThreadNode{Status: s}
		if id := n.ID(); id != "" {
			if _, dup := t.index[id]; dup {
				continue
			}
			t.index[id] = n
		}
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		parent, ok := t.index[inReplyTo(n.Status)]
		if !ok || parent == n {
			t.Roots = append(t.Roots, n)
			continue
		}
		n.Parent = parent
		parent.Replies = append(parent.Replies, n)
	}
	return t
}

// Flatten returns all statuses in depth-first order.
func (t *Thread) Flatten() []*entity.Entity {
	var result []*entity.Entity
	t.Walk(func(n *ThreadNode) { result = append(result, n.Status) })
	return result
}

// Filter returns statuses that match the given filter function.
func (t *Thread) Filter(filterFunc func(*entity.Entity) bool) []*entity.Entity {
	var result []*entity.Entity
	t.Walk(func(n *ThreadNode) {
		if filterFunc(n.Status) {
			result = append(result, n.Status)
		}
	})
	return result
}

// Find returns the first node, depth-first, whose status matches the condition.
func (t *Thread) Find(condition func(*entity.Entity) bool) *ThreadNode {
	return findRecursive(t.Roots, condition)
}

func findRecursive(nodes []*ThreadNode, condition func(*entity.Entity) bool) *ThreadNode {
	for _, n := range nodes {
		if condition(n.Status) {
			return n
		}
		if found := findRecursive(n.Replies, condition); found != nil {
			return found
		}
	}
	return nil
}

// GetByID returns the node of a status id.
func (t *Thread) GetByID(id entity.ID) *ThreadNode {
	return t.index[id]
}

// GetByAccount returns all statuses written by the account id.
func (t *Thread) GetByAccount(accountID entity.ID) []*entity.Entity {
	return t.Filter(func(s *entity.Entity) bool {
		acct, _ := s.Value("account").(*entity.Entity)
		id, _ := acct.Value("id").(entity.ID)
		return id == accountID
	})
}

// Depth returns the maximum reply depth; a thread of only roots has depth 0.
func (t *Thread) Depth() int {
	return depthRecursive(t.Roots, 0)
}

func depthRecursive(nodes []*ThreadNode, current int) int {
	maxDepth := current
	for _, n := range nodes {
		if len(n.Replies) > 0 {
			if d := depthRecursive(n.Replies, current+1); d > maxDepth {
				maxDepth = d
			}
		}
	}
	return maxDepth
}

// Count returns the number of statuses in the thread.
func (t *Thread) Count() int {
	count := 0
	t.Walk(func(*ThreadNode) { count++ })
	return count
}

// Walk applies fn to each node, depth-first.
func (t *Thread) Walk(fn func(*ThreadNode)) {
	walkRecursive(t.Roots, fn)
}

func walkRecursive(nodes []*ThreadNode, fn func(*ThreadNode)) {
	for _, n := range nodes {
		fn(n)
		walkRecursive(n.Replies, fn)
	}
}
