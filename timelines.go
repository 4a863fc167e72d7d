package mastodon

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// HomeTimeline lists the statuses of the accounts the logged in user follows.
//
// Timelines are paginated: pass the result to FetchNext for older statuses and to
// FetchPrevious for newer ones.
func (c *Client) HomeTimeline(ctx context.Context, page *types.Pagination) (*entity.List, error) {
	if err := c.validate(page); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "timeline_home", "1.0.0", "3.1.4"); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/timelines/home",
		params: pageParams(page),
	}, types.StatusListType)
}

// PublicTimeline lists public statuses known to the server. Set Local or Remote on request to
// restrict them by origin.
func (c *Client) PublicTimeline(ctx context.Context, request *types.TimelineRequest) (*entity.List, error) {
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "timeline_public", "1.0.0", "3.1.4"); err != nil {
		return nil, err
	}
	if request != nil && request.Remote {
		if err := c.requireVersion(ctx, "timeline_public", "3.1.4", ""); err != nil {
			return nil, err
		}
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/timelines/public",
		params: request.Params(),
	}, types.StatusListType)
}

// LocalTimeline lists public statuses posted on this server.
func (c *Client) LocalTimeline(ctx context.Context, page *types.Pagination) (*entity.List, error) {
	r := &types.TimelineRequest{Local: true}
	if page != nil {
		r.Pagination = *page
	}
	return c.PublicTimeline(ctx, r)
}

// RemoteTimeline lists public statuses that arrived from other servers.
func (c *Client) RemoteTimeline(ctx context.Context, page *types.Pagination) (*entity.List, error) {
	r := &types.TimelineRequest{Remote: true}
	if page != nil {
		r.Pagination = *page
	}
	return c.PublicTimeline(ctx, r)
}

// HashtagTimeline lists public statuses using a hashtag. hashtag is given without the
// leading #.
func (c *Client) HashtagTimeline(ctx context.Context, hashtag string, request *types.TimelineRequest) (*entity.List, error) {
	if err := c.validator.ValidateHashtag("hashtag", hashtag); err != nil {
		return nil, err
	}
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "timeline_hashtag", "1.0.0", "3.1.4"); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/timelines/tag/" + url.PathEscape(hashtag),
		params: request.Params(),
	}, types.StatusListType)
}

// ListTimeline lists the statuses of the accounts in one of the user's lists.
func (c *Client) ListTimeline(ctx context.Context, listID ID, page *types.Pagination) (*entity.List, error) {
	if err := c.validID("list_id", listID); err != nil {
		return nil, err
	}
	if err := c.validate(page); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "timeline_list", "2.1.0", "3.1.4"); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/timelines/list/" + string(listID),
		params: pageParams(page),
	}, types.StatusListType)
}

// Conversations lists the direct conversations of the logged in user.
func (c *Client) Conversations(ctx context.Context, page *types.Pagination) (*entity.List, error) {
	if err := c.validate(page); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "conversations", "2.6.0", ""); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/conversations",
		params: pageParams(page),
	}, types.ConversationListType)
}
