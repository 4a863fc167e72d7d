package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Notifications lists the notifications of the logged in user, newest first.
func (c *Client) Notifications(ctx context.Context, request *types.NotificationsRequest) (*entity.List, error) {
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "notifications", "1.0.0", "3.5.0"); err != nil {
		return nil, err
	}
	if request != nil && len(request.Types) > 0 {
		if err := c.requireVersion(ctx, "notifications", "3.5.0", ""); err != nil {
			return nil, err
		}
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/notifications",
		params: request.Params(),
	}, types.NotificationListType)
}

// Notification fetches a single notification.
func (c *Client) Notification(ctx context.Context, id ID) (types.Notification, error) {
	if err := c.validID("id", id); err != nil {
		return types.Notification{}, err
	}
	if err := c.requireVersion(ctx, "notification", "1.0.0", ""); err != nil {
		return types.Notification{}, err
	}
	e, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v1/notifications/" + string(id)}, types.NotificationType)
	if err != nil {
		return types.Notification{}, err
	}
	return types.Notification{Entity: e}, nil
}

// DismissNotification deletes a single notification.
func (c *Client) DismissNotification(ctx context.Context, id ID) error {
	if err := c.validID("id", id); err != nil {
		return err
	}
	if err := c.requireVersion(ctx, "notifications_dismiss", "1.0.0", "2.6.0"); err != nil {
		return err
	}
	_, err := c.fetchValue(ctx, call{method: http.MethodPost, path: "api/v1/notifications/" + string(id) + "/dismiss"}, types.EmptyType)
	return err
}

// ClearNotifications deletes all notifications of the logged in user.
func (c *Client) ClearNotifications(ctx context.Context) error {
	if err := c.requireVersion(ctx, "notifications_clear", "1.0.0", ""); err != nil {
		return err
	}
	_, err := c.fetchValue(ctx, call{method: http.MethodPost, path: "api/v1/notifications/clear"}, types.EmptyType)
	return err
}

// PushSubscribe registers a web push subscription for the current access token, replacing any
// previous one. Generate the keys with webpush.GenerateKeys and decrypt the deliveries with
// webpush.DecryptNotification.
func (c *Client) PushSubscribe(ctx context.Context, request *types.PushSubscriptionRequest) (*entity.Entity, error) {
	if request == nil {
		request = &types.PushSubscriptionRequest{}
	}
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "push_subscription_set", "2.4.0", "4.0.0"); err != nil {
		return nil, err
	}
	return c.fetchEntity(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/push/subscription",
		params: request.Params(),
	}, types.PushSubscriptionType)
}

// PushSubscription returns the web push subscription of the current access token.
func (c *Client) PushSubscription(ctx context.Context) (*entity.Entity, error) {
	if err := c.requireVersion(ctx, "push_subscription", "2.4.0", ""); err != nil {
		return nil, err
	}
	return c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v1/push/subscription"}, types.PushSubscriptionType)
}

// PushUnsubscribe removes the web push subscription of the current access token.
func (c *Client) PushUnsubscribe(ctx context.Context) error {
	if err := c.requireVersion(ctx, "push_subscription_delete", "2.4.0", ""); err != nil {
		return err
	}
	_, err := c.fetchValue(ctx, call{method: http.MethodDelete, path: "api/v1/push/subscription"}, types.EmptyType)
	return err
}
