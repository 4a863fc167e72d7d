package mastodon

import (
	"context"
	"net/http"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Report files a report against an account with the server's moderators.
func (c *Client) Report(ctx context.Context, request *types.ReportRequest) (types.Report, error) {
	if request == nil {
		return types.Report{}, &pkgerrs.IllegalArgumentError{Field: "accountid", Message: "is required"}
	}
	if err := c.validate(request); err != nil {
		return types.Report{}, err
	}
	if err := c.requireVersion(ctx, "report", "1.1.0", "3.5.0"); err != nil {
		return types.Report{}, err
	}
	if request.Category != "" || len(request.RuleIDs) > 0 {
		if err := c.requireVersion(ctx, "report", "3.5.0", ""); err != nil {
			return types.Report{}, err
		}
	}
	e, err := c.fetchEntity(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/reports",
		params: request.Params(),
	}, types.ReportType)
	if err != nil {
		return types.Report{}, err
	}
	return types.Report{Entity: e}, nil
}

// AdminAccounts lists accounts for moderation. It needs the admin:read:accounts scope.
func (c *Client) AdminAccounts(ctx context.Context, request *types.AdminAccountsRequest) (*entity.List, error) {
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "admin_accounts", "4.0.0", ""); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v2/admin/accounts",
		params: request.Params(),
	}, types.AdminAccountListType)
}

// AdminAccount fetches the moderation view of an account.
func (c *Client) AdminAccount(ctx context.Context, id ID) (types.AdminAccount, error) {
	if err := c.validID("id", id); err != nil {
		return types.AdminAccount{}, err
	}
	if err := c.requireVersion(ctx, "admin_account", "2.9.1", ""); err != nil {
		return types.AdminAccount{}, err
	}
	e, err := c.fetchEntity(ctx, call{method: http.MethodGet, path: "api/v1/admin/accounts/" + string(id)}, types.AdminAccountType)
	if err != nil {
		return types.AdminAccount{}, err
	}
	return types.AdminAccount{Entity: e}, nil
}

// AdminAccountAction takes a moderation action against an account, optionally resolving the
// report that prompted it.
func (c *Client) AdminAccountAction(ctx context.Context, id ID, request *types.AdminActionRequest) error {
	if err := c.validID("id", id); err != nil {
		return err
	}
	if request == nil {
		request = &types.AdminActionRequest{}
	}
	if err := c.validate(request); err != nil {
		return err
	}
	if err := c.requireVersion(ctx, "admin_account_moderate", "2.9.1", ""); err != nil {
		return err
	}
	_, err := c.fetchValue(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/admin/accounts/" + string(id) + "/action",
		params: request.Params(),
	}, types.EmptyType)
	return err
}

// AdminReports lists reports for moderation. Unresolved reports are listed unless
// request.Resolved is set.
func (c *Client) AdminReports(ctx context.Context, request *types.AdminReportsRequest) (*entity.List, error) {
	if err := c.validate(request); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "admin_reports", "2.9.1", ""); err != nil {
		return nil, err
	}
	return c.fetchList(ctx, call{
		method: http.MethodGet,
		path:   "api/v1/admin/reports",
		params: request.Params(),
	}, types.AdminReportListType)
}

// AdminResolveReport marks a report as resolved without taking further action.
func (c *Client) AdminResolveReport(ctx context.Context, id ID) (types.AdminReport, error) {
	if err := c.validID("id", id); err != nil {
		return types.AdminReport{}, err
	}
	if err := c.requireVersion(ctx, "admin_report_resolve", "2.9.1", ""); err != nil {
		return types.AdminReport{}, err
	}
	e, err := c.fetchEntity(ctx, call{method: http.MethodPost, path: "api/v1/admin/reports/" + string(id) + "/resolve"}, types.AdminReportType)
	if err != nil {
		return types.AdminReport{}, err
	}
	return types.AdminReport{Entity: e}, nil
}
