package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Markers returns the saved read positions of the given timelines ("home",
// "notifications"). Without arguments both are requested. Use types.Markers to read one.
func (c *Client) Markers(ctx context.Context, timelines ...string) (*entity.Entity, error) {
	for _, t := range timelines {
		if err := c.validator.Var("timeline", t, "oneof=home notifications"); err != nil {
			return nil, err
		}
	}
	if len(timelines) == 0 {
		timelines = []string{"home", "notifications"}
	}
	if err := c.requireVersion(ctx, "markers_get", "3.0.0", ""); err != nil {
		return nil, err
	}
	return c.fetchEntity(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/markers",
		params: map[string]any{"timeline": timelines},
	}, types.MarkersType)
}

// SaveMarkers stores read positions.
func (c *Client) SaveMarkers(ctx context.Context, request *types.MarkerRequest) (*entity.Entity, error) {
	if request == nil || (request.HomeLastReadID == "" && request.NotificationsLastReadID == "") {
		return nil, &pkgerrs.IllegalArgumentError{Field: "markers", Message: "at least one last read id is required"}
	}
	if err := c.requireVersion(ctx, "markers_set", "3.0.0", ""); err != nil {
		return nil, err
	}
	return c.fetchEntity(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/markers",
		params: request.Params(),
	}, types.MarkersType)
}
