package mastodon

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

func (c *Client) status(ctx context.Context, cl call) (types.Status, error) {
	e, err := c.fetchEntity(ctx, cl, types.StatusType)
	if err != nil {
		return types.Status{}, err
	}
	return types.Status{Entity: e}, nil
}

// Status fetches a status by id.
func (c *Client) Status(ctx context.Context, id ID) (types.Status, error) {
	if err := c.validID("id", id); err != nil {
		return types.Status{}, err
	}
	if err := c.requireVersion(ctx, "status", "1.0.0", ""); err != nil {
		return types.Status{}, err
	}
	return c.status(ctx, call{method: http.MethodGet, path: "api/v1/statuses/" + string(id)})
}

// StatusContext fetches the ancestors and descendants of a status. Use BuildThread to arrange
// them as a reply tree.
func (c *Client) StatusContext(ctx context.Context, id ID) (types.Context, error) {
	if err := c.validID("id", id); err != nil {
		return types.Context{}, err
	}
	if err := c.requireVersion(ctx, "status_context", "1.0.0", ""); err != nil {
		return types.Context{}, err
	}
	e, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v1/statuses/" + string(id) + "/context"}, types.ContextType)
	if err != nil {
		return types.Context{}, err
	}
	return types.Context{Entity: e}, nil
}

// PostStatus publishes a new status.
//
// Every post carries an Idempotency-Key header, so a retried request does not publish the
// status twice. Set request.IdempotencyKey to retry a post across client instances.
func (c *Client) PostStatus(ctx context.Context, request *types.StatusRequest) (types.Status, error) {
	if request == nil {
		request = &types.StatusRequest{}
	}
	if err := c.validate(request); err != nil {
		return types.Status{}, err
	}
	if err := c.requireVersion(ctx, "status_post", "1.0.0", "2.8.0"); err != nil {
		return types.Status{}, err
	}
	if request.Poll != nil {
		if err := c.requireVersion(ctx, "status_post", "2.8.0", ""); err != nil {
			return types.Status{}, err
		}
	}

	key := request.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	return c.status(ctx, call{
		method:  http.MethodPost,
		path:    "api/v1/statuses",
		params:  request.Params(),
		json:    true,
		headers: map[string]string{"Idempotency-Key": key},
	})
}

// Reply posts request as a reply to status. The reply is addressed to the status author, and
// keeps the status visibility unless request sets one.
func (c *Client) Reply(ctx context.Context, status types.Status, request *types.StatusRequest) (types.Status, error) {
	if status.Entity == nil {
		return types.Status{}, c.validID("in_reply_to_id", "")
	}
	if request == nil {
		request = &types.StatusRequest{}
	}
	r := *request
	r.InReplyToID = status.ID()
	if r.Visibility == "" {
		r.Visibility = status.Visibility()
	}
	return c.PostStatus(ctx, &r)
}

// EditStatus replaces the text, media or poll of a status.
func (c *Client) EditStatus(ctx context.Context, id ID, request *types.StatusEditRequest) (types.Status, error) {
	if err := c.validID("id", id); err != nil {
		return types.Status{}, err
	}
	if request == nil {
		request = &types.StatusEditRequest{}
	}
	if err := c.validate(request); err != nil {
		return types.Status{}, err
	}
	if err := c.requireVersion(ctx, "status_update", "3.5.0", ""); err != nil {
		return types.Status{}, err
	}
	return c.status(ctx, call{
		method: http.MethodPut,
		path:   "api/v1/statuses/" + string(id),
		params: request.Params(),
		json:   true,
	})
}

// DeleteStatus deletes a status. The returned status carries the source text, so it can be
// edited and posted again.
func (c *Client) DeleteStatus(ctx context.Context, id ID) (types.Status, error) {
	if err := c.validID("id", id); err != nil {
		return types.Status{}, err
	}
	if err := c.requireVersion(ctx, "status_delete", "1.0.0", ""); err != nil {
		return types.Status{}, err
	}
	return c.status(ctx, call{method: http.MethodDelete, path: "api/v1/statuses/" + string(id)})
}

// Favourite favourites a status.
func (c *Client) Favourite(ctx context.Context, id ID) (types.Status, error) {
	return c.statusAction(ctx, "status_favourite", id, "favourite", "")
}

// Unfavourite removes a favourite.
func (c *Client) Unfavourite(ctx context.Context, id ID) (types.Status, error) {
	return c.statusAction(ctx, "status_unfavourite", id, "unfavourite", "")
}

// Reblog boosts a status. The returned status wraps the original in its reblog field.
func (c *Client) Reblog(ctx context.Context, id ID) (types.Status, error) {
	return c.statusAction(ctx, "status_reblog", id, "reblog", "2.0.0")
}

// Unreblog removes a boost.
func (c *Client) Unreblog(ctx context.Context, id ID) (types.Status, error) {
	return c.statusAction(ctx, "status_unreblog", id, "unreblog", "")
}

func (c *Client) statusAction(ctx context.Context, endpoint string, id ID, action, changed string) (types.Status, error) {
	if err := c.validID("id", id); err != nil {
		return types.Status{}, err
	}
	if err := c.requireVersion(ctx, endpoint, "1.0.0", changed); err != nil {
		return types.Status{}, err
	}
	return c.status(ctx, call{method: http.MethodPost, path: "api/v1/statuses/" + string(id) + "/" + action})
}
