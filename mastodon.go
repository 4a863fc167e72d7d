package mastodon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

const (
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-mastodon-api-wrapper/0.2"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// SupportedVersion is the newest server version whose API this client covers.
	SupportedVersion = "4.3.0"
)

// RateLimitMethod selects how the client reacts to the server's rate limit.
type RateLimitMethod = internal.RateLimitMethod

const (
	RateLimitThrow = internal.RateLimitThrow
	RateLimitWait  = internal.RateLimitWait
	RateLimitPace  = internal.RateLimitPace
)

// RateLimitWindow mirrors the server's rate limit state: limit, remaining calls, reset time
// and the time of the last call.
type RateLimitWindow = internal.RateLimitWindow

// VersionCheckMode selects how endpoint version requirements are enforced.
type VersionCheckMode string

const (
	// VersionCheckCreated rejects endpoints the server is too old to have.
	VersionCheckCreated VersionCheckMode = "created"
	// VersionCheckChanged additionally rejects endpoints whose behaviour changed after the
	// server's version.
	VersionCheckChanged VersionCheckMode = "changed"
	// VersionCheckNone disables version checks and version discovery.
	VersionCheckNone VersionCheckMode = "none"
)

// Config holds the configuration for the Mastodon client.
//
// Example for a logged in user:
//
//	config := &Config{
//		BaseURL:     "https://mastodon.social",
//		AccessToken: token,
//		UserAgent:   "myapp/1.0",
//	}
type Config struct {
	// BaseURL of the server, e.g. "https://mastodon.social". Required.
	BaseURL string `validate:"required,http_url"`

	// StreamingURL is the base URL of the streaming API when the server serves it from another
	// host. Defaults to BaseURL.
	StreamingURL string `validate:"omitempty,http_url"`

	// AccessToken is sent as a bearer token. Leave empty for public endpoints or to log in
	// later through Authenticator.
	AccessToken string

	// ClientID and ClientSecret identify the registered application. They are only needed
	// for the OAuth flows.
	ClientID     string
	ClientSecret string

	// UserAgent string to identify your application.
	// Defaults to DefaultUserAgent if not specified.
	UserAgent string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics.
	// Optional. If provided, debug information will be logged during API calls.
	Logger *slog.Logger

	// RateLimitMethod is throw, wait or pace. Defaults to wait.
	RateLimitMethod RateLimitMethod `validate:"omitempty,oneof=throw wait pace"`
	// RateLimitPaceFactor makes pacing more aggressive above 1. Defaults to 1.1.
	RateLimitPaceFactor float64 `validate:"gte=0"`
	// RateLimitMaxSleep bounds every rate limit sleep. Defaults to 300s.
	RateLimitMaxSleep time.Duration `validate:"gte=0"`

	// RequestsPerMinute adds a client side request ceiling. Zero disables it.
	RequestsPerMinute float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`

	// VersionCheckMode defaults to created.
	VersionCheckMode VersionCheckMode `validate:"omitempty,oneof=created changed none"`
	// MastodonVersion skips version discovery when set.
	MastodonVersion string

	// Language is sent as Accept-Language.
	Language string

	// Registry resolves entity schemas. Defaults to entity.DefaultRegistry.
	Registry *entity.Registry
}

// Client is the main Mastodon API client.
//
// A Client issues its requests one at a time in call order. It is not safe for concurrent use
// from several goroutines; the pace and wait policies assume a single caller.
type Client struct {
	client    *internal.Client
	config    *Config
	parser    *internal.Parser
	validator *internal.Validator
	conn      *internal.ConnectionManager
	logger    *slog.Logger
}

// NewClient creates a new Mastodon client with the provided configuration.
// It validates the configuration and applies defaults. No request is made; the server
// version is discovered on Connect or on the first version gated call.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}

	v := internal.NewValidator()
	if err := v.Config(config); err != nil {
		return nil, err
	}

	// Set defaults
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if err := v.ValidateUserAgent(config.UserAgent); err != nil {
		return nil, err
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if config.VersionCheckMode == "" {
		config.VersionCheckMode = VersionCheckCreated
	}
	if config.Registry == nil {
		config.Registry = entity.DefaultRegistry
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := internal.NewClient(internal.ClientConfig{
		HTTPClient:        config.HTTPClient,
		BaseURL:           config.BaseURL,
		AccessToken:       config.AccessToken,
		UserAgent:         config.UserAgent,
		Language:          config.Language,
		Logger:            logger,
		RateLimitMethod:   config.RateLimitMethod,
		PaceFactor:        config.RateLimitPaceFactor,
		MaxSleep:          config.RateLimitMaxSleep,
		RequestsPerMinute: config.RequestsPerMinute,
		Burst:             config.Burst,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		client:    client,
		config:    config,
		parser:    internal.NewParser(config.Registry),
		validator: v,
		conn:      internal.NewConnectionManager(),
		logger:    logger,
	}
	if config.MastodonVersion != "" {
		c.conn.Set(config.MastodonVersion)
	}
	return c, nil
}

// Connect discovers the server version used for version checks. It is safe to call Connect
// several times; discovery only happens once it succeeded. With VersionCheckNone, Connect does
// nothing.
func (c *Client) Connect(ctx context.Context) error {
	if c.config.VersionCheckMode == VersionCheckNone {
		return nil
	}
	_, err := c.conn.Initialize(ctx, c.discoverVersion)
	return err
}

func (c *Client) discoverVersion(ctx context.Context) (string, error) {
	resp, err := c.client.Do(ctx, &internal.Request{Method: http.MethodGet, Path: "api/v1/instance"})
	if err != nil {
		return "", err
	}
	inst := types.Instance{Entity: c.parser.ParseEntity(resp, types.InstanceType)}
	if inst.Entity == nil || inst.Version() == "" {
		return "", &pkgerrs.APIError{
			StatusCode: resp.StatusCode,
			Message:    "instance response carries no version",
			Body:       string(resp.Body),
			Kind:       pkgerrs.ErrAPI,
		}
	}
	c.logger.DebugContext(ctx, "detected server version", "version", inst.Version())
	return inst.Version(), nil
}

// IsConnected reports whether the server version is known.
func (c *Client) IsConnected() bool {
	return c.conn.IsInitialized()
}

// SetAccessToken replaces the bearer token, e.g. after logging in.
func (c *Client) SetAccessToken(token string) {
	c.client.SetToken(token)
	c.config.AccessToken = token
}

// AccessToken returns the current bearer token.
func (c *Client) AccessToken() string {
	return c.client.Token()
}

// BaseURL returns the server base URL with a trailing slash.
func (c *Client) BaseURL() string {
	return c.client.BaseURL.String()
}

// RateLimit returns the client's view of the server's rate limit window.
func (c *Client) RateLimit() RateLimitWindow {
	return c.client.Window()
}

// Registry returns the schema registry responses are cast against.
func (c *Client) Registry() *entity.Registry {
	return c.parser.Registry()
}

// call describes one endpoint invocation.
type call struct {
	method  string
	path    string
	params  map[string]any
	json    bool
	files   []internal.File
	headers map[string]string
	noAuth  bool

	// noRateLimit leaves the rate limit window alone, for documents outside the API.
	noRateLimit bool
}

func (c *Client) do(ctx context.Context, cl call) (*internal.Response, error) {
	return c.client.Do(ctx, &internal.Request{
		Method:      cl.method,
		Path:        cl.path,
		Params:      cl.params,
		JSON:        cl.json,
		Files:       cl.files,
		Headers:     cl.headers,
		NoAuth:      cl.noAuth,
		NoRateLimit: cl.noRateLimit,
	})
}

// fetchEntity performs cl and casts the response to a single entity of type t.
func (c *Client) fetchEntity(ctx context.Context, cl call, t *entity.Type) (*entity.Entity, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseEntity(resp, t), nil
}

// fetchList performs cl and casts the response to a paginated collection of type t.
func (c *Client) fetchList(ctx context.Context, cl call, t *entity.Type) (*entity.List, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseList(resp, t), nil
}

// fetchValue performs cl and casts the response against t, whatever its shape.
func (c *Client) fetchValue(ctx context.Context, cl call, t *entity.Type) (any, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	return c.parser.Parse(resp, t), nil
}

// validate checks a request struct; a nil request is valid.
func (c *Client) validate(req any) error {
	if v := reflect.ValueOf(req); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil
	}
	return c.validator.Struct(req)
}

func pageParams(p *types.Pagination) map[string]any {
	if p == nil {
		return nil
	}
	return p.Params()
}

// validID checks an id before it is placed into a path.
func (c *Client) validID(field string, id ID) error {
	return c.validator.ValidateID(field, string(id))
}

// ID identifies a server object.
type ID = entity.ID
