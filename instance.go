package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

const nodeInfoSchema = "http://nodeinfo.diaspora.software/ns/schema/2.0"

// Instance fetches the server description (API v1). It needs no login and is not version
// checked, as it is the call that discovers the version.
func (c *Client) Instance(ctx context.Context) (types.Instance, error) {
	e, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v1/instance", noAuth: true}, types.InstanceType)
	if err != nil {
		return types.Instance{}, err
	}
	return types.Instance{Entity: e}, nil
}

// InstanceV2 fetches the server description (API v2).
func (c *Client) InstanceV2(ctx context.Context) (types.Instance, error) {
	if err := c.requireVersion(ctx, "instance_v2", "4.0.0", ""); err != nil {
		return types.Instance{}, err
	}
	e, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v2/instance", noAuth: true}, types.InstanceV2Type)
	if err != nil {
		return types.Instance{}, err
	}
	return types.Instance{Entity: e}, nil
}

// NodeInfo fetches the server's nodeinfo 2.0 document. It is also served by other fediverse
// software, and is the usual way to tell a Mastodon server from a compatible one.
func (c *Client) NodeInfo(ctx context.Context) (types.NodeInfo, error) {
	if err := c.requireVersion(ctx, "instance_nodeinfo", "3.0.0", ""); err != nil {
		return types.NodeInfo{}, err
	}

	links, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: ".well-known/nodeinfo", noAuth: true, noRateLimit: true}, entity.Generic())
	if err != nil {
		return types.NodeInfo{}, err
	}
	href := ""
	if links != nil {
		items, _ := links.Value("links").([]any)
		for _, it := range items {
			link, ok := it.(*entity.Entity)
			if !ok {
				continue
			}
			if rel, _ := link.Value("rel").(string); rel == nodeInfoSchema {
				href, _ = link.Value("href").(string)
				break
			}
		}
	}
	if href == "" {
		return types.NodeInfo{}, &pkgerrs.APIError{
			StatusCode: http.StatusNotFound,
			Message:    "server publishes no nodeinfo 2.0 document",
			Kind:       pkgerrs.ErrNotFound,
		}
	}

	doc, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: href, noAuth: true, noRateLimit: true}, types.NodeInfoType)
	if err != nil {
		return types.NodeInfo{}, err
	}
	return types.NodeInfo{Entity: doc}, nil
}
