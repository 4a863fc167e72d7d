package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

func (c *Client) account(ctx context.Context, cl call) (types.Account, error) {
	e, err := c.fetchEntity(ctx, cl, types.AccountType)
	if err != nil {
		return types.Account{}, err
	}
	return types.Account{Entity: e}, nil
}

func (c *Client) relationship(ctx context.Context, cl call) (types.Relationship, error) {
	e, err := c.fetchEntity(ctx, cl, types.RelationshipType)
	if err != nil {
		return types.Relationship{}, err
	}
	return types.Relationship{Entity: e}, nil
}

// VerifyCredentials returns the account of the logged in user, including its source fields.
func (c *Client) VerifyCredentials(ctx context.Context) (types.Account, error) {
	if err := c.requireVersion(ctx, "account_verify_credentials", "1.0.0", ""); err != nil {
		return types.Account{}, err
	}
	return c.account(ctx, call{method: http.MethodGet, path: "api/v1/accounts/verify_credentials"})
}

// Account fetches an account by id.
func (c *Client) Account(ctx context.Context, id ID) (types.Account, error) {
	if err := c.validID("id", id); err != nil {
		return types.Account{}, err
	}
	if err := c.requireVersion(ctx, "account", "1.0.0", ""); err != nil {
		return types.Account{}, err
	}
	return c.account(ctx, call{method: http.MethodGet, path: "api/v1/accounts/" + string(id)})
}

// LookupAccount resolves a handle such as "user" or "user@example.com" without a search.
func (c *Client) LookupAccount(ctx context.Context, acct string) (types.Account, error) {
	if err := c.validator.Var("acct", acct, "required,acct"); err != nil {
		return types.Account{}, err
	}
	if err := c.requireVersion(ctx, "account_lookup", "3.4.0", ""); err != nil {
		return types.Account{}, err
	}
	return c.account(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/accounts/lookup",
		params: map[string]any{"acct": acct},
	})
}

// AccountStatuses lists the statuses posted by an account, newest first.
func (c *Client) AccountStatuses(ctx context.Context, id ID, request *types.AccountStatusesRequest) (*entity.List, error) {
	if err := c.validID("id", id); err != nil {
		return nil, err
	}
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "account_statuses", "1.0.0", "2.7.0"); err != nil {
		return nil, err
	}
	if request != nil && request.Tagged != "" {
		if err := c.requireVersion(ctx, "account_statuses", "3.3.0", ""); err != nil {
			return nil, err
		}
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/accounts/" + string(id) + "/statuses",
		params: request.Params(),
	}, types.StatusListType)
}

// AccountFollowers lists the accounts following an account.
func (c *Client) AccountFollowers(ctx context.Context, id ID, page *types.Pagination) (*entity.List, error) {
	return c.accountList(ctx, "account_followers", id, "followers", page)
}

// AccountFollowing lists the accounts an account follows.
func (c *Client) AccountFollowing(ctx context.Context, id ID, page *types.Pagination) (*entity.List, error) {
	return c.accountList(ctx, "account_following", id, "following", page)
}

func (c *Client) accountList(ctx context.Context, endpoint string, id ID, sub string, page *types.Pagination) (*entity.List, error) {
	if err := c.validID("id", id); err != nil {
		return nil, err
	}
	if err := c.validate(page); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, endpoint, "1.0.0", "2.6.0"); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/accounts/" + string(id) + "/" + sub,
		params: pageParams(page),
	}, types.AccountListType)
}

// Follow follows an account, or updates the options of an existing follow.
func (c *Client) Follow(ctx context.Context, id ID, request *types.FollowRequest) (types.Relationship, error) {
	if err := c.validID("id", id); err != nil {
		return types.Relationship{}, err
	}
	if err := c.requireVersion(ctx, "account_follow", "1.0.0", "3.3.0"); err != nil {
		return types.Relationship{}, err
	}
	return c.relationship(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/accounts/" + string(id) + "/follow",
		params: request.Params(),
	})
}

// Unfollow stops following an account.
func (c *Client) Unfollow(ctx context.Context, id ID) (types.Relationship, error) {
	if err := c.validID("id", id); err != nil {
		return types.Relationship{}, err
	}
	if err := c.requireVersion(ctx, "account_unfollow", "1.0.0", ""); err != nil {
		return types.Relationship{}, err
	}
	return c.relationship(ctx, call{method: http.MethodPost, path: "api/v1/accounts/" + string(id) + "/unfollow"})
}

// Relationships returns the logged in user's relationship to each of ids, in the order the
// server returns them.
func (c *Client) Relationships(ctx context.Context, ids ...ID) ([]types.Relationship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	for _, id := range ids {
		if err := c.validID("id", id); err != nil {
			return nil, err
		}
	}
	if err := c.requireVersion(ctx, "account_relationships", "1.0.0", "3.3.0"); err != nil {
		return nil, err
	}
	v, err := c.fetchValue(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/accounts/relationships",
		params: map[string]any{"id": ids},
	}, types.RelationshipListType)
	if err != nil {
		return nil, err
	}
	items, _ := v.([]any)
	out := make([]types.Relationship, 0, len(items))
	for _, it := range items {
		if r, ok := types.AsRelationship(it); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SearchAccounts searches accounts by handle and display name. The result carries no
// pagination cursors; page with Offset instead.
func (c *Client) SearchAccounts(ctx context.Context, request *types.AccountSearchRequest) (*entity.List, error) {
	if request == nil {
		request = &types.AccountSearchRequest{}
	}
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "account_search", "1.0.0", "2.8.0"); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/accounts/search",
		params: request.Params(),
	}, types.AccountListType)
}
