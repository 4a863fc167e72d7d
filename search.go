package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Search finds accounts, statuses and hashtags matching request.Query.
func (c *Client) Search(ctx context.Context, request *types.SearchRequest) (types.Search, error) {
	if request == nil {
		request = &types.SearchRequest{}
	}
	if err := c.validate(request); err != nil {
		return types.Search{}, err
	}
	if err := c.requireVersion(ctx, "search", "2.4.1", "4.0.0"); err != nil {
		return types.Search{}, err
	}
	if request.ExcludeUnreviewed || request.AccountID != "" {
		if err := c.requireVersion(ctx, "search", "3.0.0", ""); err != nil {
			return types.Search{}, err
		}
	}
	e, err := c.fetchEntity(ctx, call{
		method: http.MethodGet,
		path:   "api/v2/search",
		params: request.Params(),
	}, types.SearchType)
	if err != nil {
		return types.Search{}, err
	}
	return types.Search{Entity: e}, nil
}
