package mastodon_test

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mastodon "github.com/jamesprial/go-mastodon-api-wrapper"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/test_helpers"
)

func TestCreateApp(t *testing.T) {
	cfg := test_helpers.DefaultMockClientConfig()
	cfg.AccessToken = ""
	tc := test_helpers.NewTestClient(t, &cfg)
	ctx := context.Background()

	app, err := tc.CreateApp(ctx, &types.AppRequest{
		ClientName: "tootctl",
		Scopes:     []string{"read", "write"},
		Website:    "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "tootctl", app.Name())
	assert.Equal(t, "client-tootctl", app.ClientID())

	creds := tc.Credentials()
	assert.Equal(t, "client-tootctl", creds.ClientID)
	assert.Equal(t, "secret-tootctl", creds.ClientSecret)

	req, err := tc.MockServer().GetLastRequest("/api/v1/apps")
	require.NoError(t, err)
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, mastodon.OutOfBandRedirect, form.Get("redirect_uris"))
	assert.Equal(t, "read write", form.Get("scopes"))
	assert.Empty(t, req.Headers.Get("Authorization"))
}

func TestCreateApp_Validation(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	ctx := context.Background()

	_, err := tc.CreateApp(ctx, nil)
	var argErr *pkgerrs.IllegalArgumentError
	assert.ErrorAs(t, err, &argErr)

	_, err = tc.CreateApp(ctx, &types.AppRequest{ClientName: "x", Website: "not a url"})
	assert.ErrorAs(t, err, &argErr)
	assert.Empty(t, tc.MockServer().GetRequestLog())
}

func TestAuthRequestURL(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)

	authURL, verifier, err := tc.AuthRequestURL("", []string{"read", "follow"}, "xyz", true)
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "test_client_id", q.Get("client_id"))
	assert.Equal(t, mastodon.OutOfBandRedirect, q.Get("redirect_uri"))
	assert.Equal(t, "read follow", q.Get("scope"))
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "true", q.Get("force_login"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestExchangeCode(t *testing.T) {
	cfg := test_helpers.DefaultMockClientConfig()
	cfg.AccessToken = ""
	tc := test_helpers.NewTestClient(t, &cfg)
	ctx := context.Background()

	_, verifier, err := tc.AuthRequestURL("", nil, "state", false)
	require.NoError(t, err)

	tok, err := tc.ExchangeCode(ctx, "abc", verifier, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "code-token-abc", tok.AccessToken)
	assert.Equal(t, "code-token-abc", tc.AccessToken())

	req, err := tc.MockServer().GetLastRequest("/oauth/token")
	require.NoError(t, err)
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, verifier, form.Get("code_verifier"))

	_, err = tc.ExchangeCode(ctx, "", verifier, "", nil)
	var authErr *pkgerrs.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestLogIn(t *testing.T) {
	cfg := test_helpers.DefaultMockClientConfig()
	cfg.AccessToken = ""
	tc := test_helpers.NewTestClient(t, &cfg)
	ctx := context.Background()

	tok, err := tc.LogIn(ctx, "alice@example.com", "correct horse", "read", "write")
	require.NoError(t, err)
	assert.Equal(t, "user-token-alice@example.com", tok.AccessToken)

	// The new token is used from now on.
	_, err = tc.VerifyCredentials(ctx)
	require.NoError(t, err)
	req, err := tc.MockServer().GetLastRequest("/api/v1/accounts/verify_credentials")
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token-alice@example.com", req.Headers.Get("Authorization"))
}

func TestLogIn_Failures(t *testing.T) {
	cfg := test_helpers.DefaultMockClientConfig()
	cfg.AccessToken = ""
	tc := test_helpers.NewTestClient(t, &cfg)
	ctx := context.Background()

	_, err := tc.LogIn(ctx, "alice@example.com", "battery staple")
	var authErr *pkgerrs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.StatusCode)
	assert.True(t, strings.HasPrefix(authErr.Message, "invalid_grant"))
	assert.Empty(t, tc.AccessToken())

	_, err = tc.LogIn(ctx, "", "")
	assert.ErrorAs(t, err, &authErr)

	noApp, err := mastodon.NewClient(&mastodon.Config{BaseURL: tc.MockServer().URL()})
	require.NoError(t, err)
	_, err = noApp.LogIn(ctx, "alice", "correct horse")
	assert.ErrorAs(t, err, &authErr)
}

func TestAppToken(t *testing.T) {
	cfg := test_helpers.DefaultMockClientConfig()
	cfg.AccessToken = ""
	tc := test_helpers.NewTestClient(t, &cfg)

	tok, err := tc.AppToken(context.Background(), "read")
	require.NoError(t, err)
	assert.Equal(t, "app-token", tok.AccessToken)
	assert.Equal(t, "app-token", tc.AccessToken())
}

func TestRevokeToken(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	ctx := context.Background()

	require.NoError(t, tc.RevokeToken(ctx))
	assert.Empty(t, tc.AccessToken())

	req, err := tc.MockServer().GetLastRequest("/oauth/revoke")
	require.NoError(t, err)
	form, err := url.ParseQuery(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "test-token", form.Get("token"))

	err = tc.RevokeToken(ctx)
	var stateErr *pkgerrs.StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestCredentials_RoundTrip(t *testing.T) {
	tc := test_helpers.NewTestClient(t, nil)
	path := filepath.Join(t.TempDir(), "usercred.secret")

	require.NoError(t, mastodon.WriteCredentials(path, tc.Credentials()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	creds, err := mastodon.ReadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, tc.Credentials(), creds)

	cfg := &mastodon.Config{}
	creds.Apply(cfg)
	client, err := mastodon.NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "test-token", client.AccessToken())
	assert.Equal(t, tc.BaseURL(), client.BaseURL())
}

func TestReadCredentials_ShortFile(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte("token\nhttps://mastodon.example\n"), 0o600))
	creds, err := mastodon.ReadCredentials(short)
	require.NoError(t, err)
	assert.Equal(t, mastodon.Credentials{AccessToken: "token", BaseURL: "https://mastodon.example"}, creds)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = mastodon.ReadCredentials(empty)
	var cfgErr *pkgerrs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = mastodon.ReadCredentials(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = mastodon.WriteCredentials(filepath.Join(dir, "bad"), mastodon.Credentials{AccessToken: "a\nb"})
	var argErr *pkgerrs.IllegalArgumentError
	assert.ErrorAs(t, err, &argErr)
}
