package mastodon

import (
	"context"
	"fmt"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

// FetchNext fetches the page after page. page may be a *entity.List returned by a paginated
// endpoint, a cursor (*entity.Cursor or entity.Cursor), the last *entity.Entity of such a list,
// or a map with method, endpoint and params keys as found in persisted collections.
//
// FetchNext returns (nil, nil) when page carries no forward cursor, i.e. the server signalled
// that there is no further data.
func (c *Client) FetchNext(ctx context.Context, page any) (*entity.List, error) {
	return c.fetchAdjacent(ctx, page, entity.Next)
}

// FetchPrevious fetches the page before page. It accepts the same values as FetchNext and
// returns (nil, nil) when page carries no backward cursor.
func (c *Client) FetchPrevious(ctx context.Context, page any) (*entity.List, error) {
	return c.fetchAdjacent(ctx, page, entity.Prev)
}

// FetchRemaining returns first followed by every following page, concatenated into one
// collection. It stops at the first page that is empty or absent.
//
// FetchRemaining issues one request per page and has no upper bound on the number of requests;
// on large collections prefer Pages and stop when enough items were seen.
func (c *Client) FetchRemaining(ctx context.Context, first *entity.List) (*entity.List, error) {
	if first == nil {
		return nil, nil
	}
	all := &entity.List{Type: first.Type, Prev: first.Prev}
	all.Items = append(all.Items, first.Items...)

	page := first
	for {
		next, err := c.FetchNext(ctx, page)
		if err != nil {
			return nil, err
		}
		if next == nil || next.Len() == 0 {
			break
		}
		all.Items = append(all.Items, next.Items...)
		page = next
	}
	return all, nil
}

func (c *Client) fetchAdjacent(ctx context.Context, page any, dir entity.Direction) (*entity.List, error) {
	cur, t, err := cursorOf(page, dir)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}
	if cur.Endpoint == "" {
		return nil, &pkgerrs.IllegalArgumentError{Field: "page", Message: "cursor has no endpoint"}
	}
	method := cur.Method
	if method == "" {
		method = "GET"
	}
	c.logger.DebugContext(ctx, "fetching page", "direction", dir.String(), "endpoint", cur.Endpoint)
	return c.fetchList(ctx, call{method: method, path: cur.Endpoint, params: cur.Clone().Params}, t)
}

// cursorOf extracts the cursor for dir and the collection type to cast the adjacent page to.
func cursorOf(page any, dir entity.Direction) (*entity.Cursor, *entity.Type, error) {
	switch p := page.(type) {
	case nil:
		return nil, nil, nil
	case *entity.List:
		if p == nil {
			return nil, nil, nil
		}
		t := p.Type
		if t == nil {
			t = entity.PaginatableList(entity.Generic())
		}
		return p.Cursor(dir), t, nil
	case entity.List:
		return cursorOf(&p, dir)
	case *entity.Cursor:
		return p, entity.PaginatableList(entity.Generic()), nil
	case entity.Cursor:
		return &p, entity.PaginatableList(entity.Generic()), nil
	case *entity.Entity:
		if p == nil {
			return nil, nil, nil
		}
		elem := entity.Generic()
		if !p.IsGeneric() {
			elem = entity.Ref(p.SchemaName())
		}
		if cur := p.Cursor(dir); cur != nil {
			return cur, entity.PaginatableList(elem), nil
		}
		// A persisted cursor read back as a generic entity.
		if cur, ok := entity.CursorFromMap(p); ok {
			return cur, entity.PaginatableList(entity.Generic()), nil
		}
		return nil, nil, nil
	case map[string]any:
		if cur, ok := entity.CursorFromMap(p); ok {
			return cur, entity.PaginatableList(entity.Generic()), nil
		}
		return nil, nil, &pkgerrs.IllegalArgumentError{Field: "page", Message: "map is not a pagination cursor"}
	}
	return nil, nil, &pkgerrs.IllegalArgumentError{Field: "page", Message: fmt.Sprintf("cannot paginate %T", page)}
}

// PageIterator walks a paginated collection one page at a time, following the forward cursors.
type PageIterator struct {
	client  *Client
	ctx     context.Context
	current *entity.List
	started bool
	done    bool
	err     error
}

// Pages returns an iterator that yields first and then each following page.
func (c *Client) Pages(ctx context.Context, first *entity.List) *PageIterator {
	return &PageIterator{client: c, ctx: ctx, current: first, done: first == nil}
}

// HasNext returns true if another page may be available.
func (it *PageIterator) HasNext() bool {
	if it.err != nil || it.done {
		return false
	}
	if !it.started {
		return true
	}
	return it.current.Next != nil
}

// Next returns the next page. It returns (nil, nil) once the collection is exhausted.
func (it *PageIterator) Next() (*entity.List, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.done {
		return nil, nil
	}
	if !it.started {
		it.started = true
		return it.current, nil
	}

	page, err := it.client.FetchNext(it.ctx, it.current)
	if err != nil {
		it.err = err
		return nil, err
	}
	if page == nil || page.Len() == 0 {
		it.done = true
		return nil, nil
	}
	it.current = page
	return page, nil
}

// Err returns any error encountered during iteration.
func (it *PageIterator) Err() error {
	return it.err
}

// Collect gathers items from the remaining pages until limit items were seen. A limit of zero or
// less collects everything.
func (it *PageIterator) Collect(limit int) ([]any, error) {
	var items []any
	for it.HasNext() {
		page, err := it.Next()
		if err != nil {
			return items, err
		}
		if page == nil {
			break
		}
		for _, item := range page.Items {
			items = append(items, item)
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}
