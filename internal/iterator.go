package internal

import (
	"fmt"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// ThreadIterator provides an iterator for traversing a reply tree.
type ThreadIterator struct {
	stack      []*ThreadNode
	visited    map[*ThreadNode]bool
	depthFirst bool
	filterFunc func(*entity.Entity) bool
	maxDepth   int
	depths     map[*ThreadNode]int
}

// ThreadIteratorOptions provides options for thread iteration.
type ThreadIteratorOptions struct {
	DepthFirst bool
	FilterFunc func(*entity.Entity) bool
	// MaxDepth limits how deep replies are followed; 0 means unlimited.
	MaxDepth int
}

// NewThreadIterator creates a new iterator over the given roots.
func NewThreadIterator(roots []*ThreadNode, opts *ThreadIteratorOptions) *ThreadIterator {
	if opts == nil {
		opts = &ThreadIteratorOptions{DepthFirst: true}
	}

	it := &ThreadIterator{
		stack:      make([]*ThreadNode, len(roots)),
		visited:    make(map[*ThreadNode]bool),
		depthFirst: opts.DepthFirst,
		filterFunc: opts.FilterFunc,
		maxDepth:   opts.MaxDepth,
		depths:     make(map[*ThreadNode]int),
	}
	copy(it.stack, roots)

	if opts.DepthFirst {
		for i, j := 0, len(it.stack)-1; i < j; i, j = i+1, j-1 {
			it.stack[i], it.stack[j] = it.stack[j], it.stack[i]
		}
	}

	return it
}

// HasNext reports whether nodes remain. Nodes rejected by the filter are only skipped when
// Next is called, so HasNext may report true once more than the filter lets through.
func (it *ThreadIterator) HasNext() bool {
	return len(it.stack) > 0
}

// Next returns the next node in the iteration along with its depth.
func (it *ThreadIterator) Next() (*ThreadNode, int, error) {
	for len(it.stack) > 0 {
		var n *ThreadNode
		if it.depthFirst {
			n = it.stack[len(it.stack)-1]
			it.stack = it.stack[:len(it.stack)-1]
		} else {
			n = it.stack[0]
			it.stack = it.stack[1:]
		}
		if n == nil || it.visited[n] {
			continue
		}
		it.visited[n] = true

		depth := it.depths[n]
		if it.maxDepth == 0 || depth < it.maxDepth {
			for _, r := range n.Replies {
				it.depths[r] = depth + 1
			}
			if it.depthFirst {
				for i := len(n.Replies) - 1; i >= 0; i-- {
					it.stack = append(it.stack, n.Replies[i])
				}
			} else {
				it.stack = append(it.stack, n.Replies...)
			}
		}

		if it.filterFunc != nil && !it.filterFunc(n.Status) {
			continue
		}
		return n, depth, nil
	}
	return nil, 0, fmt.Errorf("no more statuses available")
}
