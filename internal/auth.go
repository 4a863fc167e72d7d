package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

const (
	authorizePath = "oauth/authorize"
	tokenPath     = "oauth/token"
	revokePath    = "oauth/revoke"

	// OutOfBandRedirect asks the server to display the authorization code instead of
	// redirecting.
	OutOfBandRedirect = "urn:ietf:wg:oauth:2.0:oob"
)

// Authenticator runs the OAuth 2 exchanges of a registered Mastodon application.
type Authenticator struct {
	client    *http.Client
	userAgent string
	BaseURL   *url.URL
	config    *oauth2.Config
	revokeURL *url.URL
}

// NewAuthenticator creates a new authenticator for the application identified by clientID and
// clientSecret. An empty redirectURI means OutOfBandRedirect.
func NewAuthenticator(httpClient *http.Client, baseURL, clientID, clientSecret, redirectURI string, scopes []string, userAgent string) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clientID == "" {
		return nil, &pkgerrs.AuthError{Message: "client id is required"}
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.AuthError{Err: fmt.Errorf("failed to parse base URL: %w", err)}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}
	authURL, _ := parsedURL.Parse(authorizePath)
	tokenURL, _ := parsedURL.Parse(tokenPath)
	revokeURL, _ := parsedURL.Parse(revokePath)

	if redirectURI == "" {
		redirectURI = OutOfBandRedirect
	}
	if len(scopes) == 0 {
		scopes = []string{"read"}
	}

	// User agent is set by the transport so that oauth2's own requests carry it too.
	client := *httpClient
	client.Transport = &userAgentTransport{base: httpClient.Transport, userAgent: userAgent}

	return &Authenticator{
		client:    &client,
		userAgent: userAgent,
		BaseURL:   parsedURL,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL.String(),
				TokenURL:  tokenURL.String(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		revokeURL: revokeURL,
	}, nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(r)
}

func (a *Authenticator) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

// Scopes returns the scopes requested by every grant.
func (a *Authenticator) Scopes() []string {
	return append([]string(nil), a.config.Scopes...)
}

// AuthCodeURL returns the URL a user visits to authorize the application, and the PKCE
// verifier that must accompany the resulting code in Exchange.
func (a *Authenticator) AuthCodeURL(state string, forceLogin bool) (authURL, verifier string) {
	verifier = oauth2.GenerateVerifier()
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if forceLogin {
		opts = append(opts, oauth2.SetAuthURLParam("force_login", "true"))
	}
	return a.config.AuthCodeURL(state, opts...), verifier
}

// Exchange trades an authorization code for a token. verifier may be empty when the URL was not
// built by AuthCodeURL.
func (a *Authenticator) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, &pkgerrs.AuthError{Message: "authorization code is required"}
	}
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := a.config.Exchange(a.context(ctx), code, opts...)
	if err != nil {
		return nil, authError(err)
	}
	return tok, nil
}

// PasswordToken performs the resource owner password grant. Most servers only permit it for
// their own first party applications.
func (a *Authenticator) PasswordToken(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if username == "" || password == "" {
		return nil, &pkgerrs.AuthError{Message: "username and password are required"}
	}
	tok, err := a.config.PasswordCredentialsToken(a.context(ctx), username, password)
	if err != nil {
		return nil, authError(err)
	}
	return tok, nil
}

// ClientCredentialsToken obtains an application token that is not bound to a user.
func (a *Authenticator) ClientCredentialsToken(ctx context.Context) (*oauth2.Token, error) {
	cc := &clientcredentials.Config{
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		TokenURL:     a.config.Endpoint.TokenURL,
		Scopes:       a.config.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(a.context(ctx))
	if err != nil {
		return nil, authError(err)
	}
	return tok, nil
}

// Revoke invalidates token on the server.
func (a *Authenticator) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &pkgerrs.AuthError{Err: fmt.Errorf("failed to create revoke request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return &pkgerrs.AuthError{Err: fmt.Errorf("failed to execute revoke request: %w", err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &pkgerrs.AuthError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &pkgerrs.AuthError{
			StatusCode: resp.StatusCode,
			Message:    "token revocation failed",
			Body:       string(bodyBytes),
		}
	}
	return nil
}

// authError converts oauth2 failures, keeping the server's status and body.
func authError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ae := &pkgerrs.AuthError{Body: string(re.Body), Err: err}
		if re.Response != nil {
			ae.StatusCode = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			ae.Message = re.ErrorCode
			if re.ErrorDescription != "" {
				ae.Message += ": " + re.ErrorDescription
			}
		}
		return ae
	}
	return &pkgerrs.AuthError{Err: err}
}
