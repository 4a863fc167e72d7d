package mastodon

import (
	"context"

	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Thread is the reply tree of a conversation.
type Thread = internal.Thread

// ThreadNode is one status in a Thread with its direct replies.
type ThreadNode = internal.ThreadNode

// ThreadIterator walks a Thread depth or breadth first.
type ThreadIterator = internal.ThreadIterator

// ThreadIteratorOptions configures a ThreadIterator.
type ThreadIteratorOptions = internal.ThreadIteratorOptions

// BuildThread arranges a status and its context sc into reply trees. focus may be a zero Status,
// in which case only the context statuses are used.
func BuildThread(focus types.Status, sc types.Context) *Thread {
	var statuses []*entity.Entity
	if sc.Entity != nil {
		statuses = append(statuses, sc.Ancestors()...)
	}
	if focus.Entity != nil {
		statuses = append(statuses, focus.Entity)
	}
	if sc.Entity != nil {
		statuses = append(statuses, sc.Descendants()...)
	}
	return internal.BuildThread(statuses)
}

// NewThreadIterator returns an iterator over the roots of t.
func NewThreadIterator(t *Thread, opts *ThreadIteratorOptions) *ThreadIterator {
	if t == nil {
		return internal.NewThreadIterator(nil, opts)
	}
	return internal.NewThreadIterator(t.Roots, opts)
}

// Thread fetches a status and its context and builds the conversation around it.
func (c *Client) Thread(ctx context.Context, id ID) (*Thread, error) {
	status, err := c.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	sc, err := c.StatusContext(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildThread(status, sc), nil
}
