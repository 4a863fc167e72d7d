package mastodon

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// OutOfBandRedirect makes the server display the authorization code to the user instead of
// redirecting to an application URL.
const OutOfBandRedirect = internal.OutOfBandRedirect

// CreateApp registers an application with the server. The returned application carries the
// client id and secret, which are also stored in the client configuration for the OAuth calls
// that follow.
func (c *Client) CreateApp(ctx context.Context, request *types.AppRequest) (types.Application, error) {
	if request == nil {
		request = &types.AppRequest{}
	}
	if err := c.validate(request); err != nil {
		return types.Application{}, err
	}
	r := *request
	if len(r.RedirectURIs) == 0 {
		r.RedirectURIs = []string{OutOfBandRedirect}
	}
	if len(r.Scopes) == 0 {
		r.Scopes = []string{"read"}
	}

	e, err := c.fetchEntity(ctx, call{
		method: http.MethodPost,
		path:   "api/v1/apps",
		params: r.Params(),
		noAuth: true,
	}, types.ApplicationType)
	if err != nil {
		return types.Application{}, err
	}
	app := types.Application{Entity: e}
	if app.Entity != nil && app.ClientID() != "" {
		c.config.ClientID = app.ClientID()
		c.config.ClientSecret = app.ClientSecret()
	}
	return app, nil
}

func (c *Client) authenticator(redirectURI string, scopes []string) (*internal.Authenticator, error) {
	return internal.NewAuthenticator(
		c.config.HTTPClient,
		c.BaseURL(),
		c.config.ClientID,
		c.config.ClientSecret,
		redirectURI,
		scopes,
		c.config.UserAgent,
	)
}

// AuthRequestURL returns the URL a user opens to authorize the application, together with the
// PKCE verifier to pass to ExchangeCode. An empty redirectURI means OutOfBandRedirect; no
// scopes means read.
func (c *Client) AuthRequestURL(redirectURI string, scopes []string, state string, forceLogin bool) (authURL, verifier string, err error) {
	a, err := c.authenticator(redirectURI, scopes)
	if err != nil {
		return "", "", err
	}
	authURL, verifier = a.AuthCodeURL(state, forceLogin)
	return authURL, verifier, nil
}

// ExchangeCode trades the authorization code the user received for an access token, which the
// client uses from then on. redirectURI and scopes must match the AuthRequestURL call.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier, redirectURI string, scopes []string) (*oauth2.Token, error) {
	a, err := c.authenticator(redirectURI, scopes)
	if err != nil {
		return nil, err
	}
	tok, err := a.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	c.SetAccessToken(tok.AccessToken)
	return tok, nil
}

// LogIn obtains an access token with a username and password. Most servers only allow this
// grant for their own applications.
func (c *Client) LogIn(ctx context.Context, username, password string, scopes ...string) (*oauth2.Token, error) {
	a, err := c.authenticator("", scopes)
	if err != nil {
		return nil, err
	}
	tok, err := a.PasswordToken(ctx, username, password)
	if err != nil {
		return nil, err
	}
	c.SetAccessToken(tok.AccessToken)
	return tok, nil
}

// AppToken obtains an application token that is not bound to any user. It can read public
// data and use application level endpoints.
func (c *Client) AppToken(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	a, err := c.authenticator("", scopes)
	if err != nil {
		return nil, err
	}
	tok, err := a.ClientCredentialsToken(ctx)
	if err != nil {
		return nil, err
	}
	c.SetAccessToken(tok.AccessToken)
	return tok, nil
}

// RevokeToken invalidates the client's access token and forgets it.
func (c *Client) RevokeToken(ctx context.Context) error {
	token := c.AccessToken()
	if token == "" {
		return &pkgerrs.StateError{Operation: "revoke", Message: "client has no access token"}
	}
	a, err := c.authenticator("", nil)
	if err != nil {
		return err
	}
	if err := a.Revoke(ctx, token); err != nil {
		return err
	}
	c.SetAccessToken("")
	return nil
}
