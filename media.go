package mastodon

import (
	"context"
	"net/http"
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// DefaultMediaPollInterval is how often WaitForMedia checks an upload.
const DefaultMediaPollInterval = time.Second

func (c *Client) media(ctx context.Context, cl call) (types.MediaAttachment, error) {
	e, err := c.fetchEntity(ctx, cl, types.MediaAttachmentType)
	if err != nil {
		return types.MediaAttachment{}, err
	}
	return types.MediaAttachment{Entity: e}, nil
}

// UploadMedia uploads an image, video or audio file for use in a status.
//
// Large files are processed asynchronously: the returned attachment has no URL until
// processing finished. Use WaitForMedia before attaching it.
func (c *Client) UploadMedia(ctx context.Context, request *types.MediaRequest) (types.MediaAttachment, error) {
	if request == nil {
		return types.MediaAttachment{}, &pkgerrs.IllegalArgumentError{Field: "file", Message: "is required"}
	}
	if err := c.validate(request); err != nil {
		return types.MediaAttachment{}, err
	}
	if err := c.requireVersion(ctx, "media_post", "3.1.3", "3.2.0"); err != nil {
		return types.MediaAttachment{}, err
	}

	files := []internal.File{{
		Field:    "file",
		Name:     request.FileName,
		MIMEType: request.MIMEType,
		Reader:   request.File,
	}}
	if request.Thumbnail != nil {
		files = append(files, internal.File{
			Field:    "thumbnail",
			Name:     request.ThumbnailName,
			MIMEType: request.ThumbnailMIMEType,
			Reader:   request.Thumbnail,
		})
	}
	return c.media(ctx, call{
		method: http.MethodPost,
		path:   "api/v2/media",
		params: request.Params(),
		files:  files,
	})
}

// Media fetches an uploaded attachment. While the server is still processing it, the
// attachment has no URL.
func (c *Client) Media(ctx context.Context, id ID) (types.MediaAttachment, error) {
	if err := c.validID("id", id); err != nil {
		return types.MediaAttachment{}, err
	}
	if err := c.requireVersion(ctx, "media", "3.1.3", ""); err != nil {
		return types.MediaAttachment{}, err
	}
	return c.media(ctx, call{method: http.MethodGet, path: "api/v1/media/" + string(id)})
}

// UpdateMedia changes the description or focal point of an attachment that is not yet part
// of a status.
func (c *Client) UpdateMedia(ctx context.Context, id ID, request *types.MediaUpdateRequest) (types.MediaAttachment, error) {
	if err := c.validID("id", id); err != nil {
		return types.MediaAttachment{}, err
	}
	if request == nil {
		request = &types.MediaUpdateRequest{}
	}
	if err := c.validate(request); err != nil {
		return types.MediaAttachment{}, err
	}
	if err := c.requireVersion(ctx, "media_update", "2.3.0", ""); err != nil {
		return types.MediaAttachment{}, err
	}
	return c.media(ctx, call{
		method: http.MethodPut,
		path:   "api/v1/media/" + string(id),
		params: request.Params(),
	})
}

// WaitForMedia polls an attachment every interval until the server finished processing it.
// A zero interval uses DefaultMediaPollInterval. Cancel ctx to give up.
func (c *Client) WaitForMedia(ctx context.Context, id ID, interval time.Duration) (types.MediaAttachment, error) {
	if interval <= 0 {
		interval = DefaultMediaPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m, err := c.Media(ctx, id)
		if err != nil {
			return types.MediaAttachment{}, err
		}
		if m.Entity != nil && m.Processed() {
			return m, nil
		}
		c.logger.DebugContext(ctx, "media still processing", "id", string(id))

		select {
		case <-ctx.Done():
			return types.MediaAttachment{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
