package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

// Client manages communication with a Mastodon server. Requests are issued one at a time in
// call order; the pacing and waiting policies assume a single caller.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
	token     string
	language  string
	logger    *slog.Logger

	method     RateLimitMethod
	paceFactor float64
	maxSleep   time.Duration
	limiter    *rate.Limiter

	mu     sync.Mutex
	window RateLimitWindow

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// ClientConfig configures the request engine.
type ClientConfig struct {
	HTTPClient  *http.Client
	BaseURL     string
	AccessToken string
	UserAgent   string
	Language    string
	Logger      *slog.Logger

	// RateLimitMethod defaults to RateLimitWait.
	RateLimitMethod RateLimitMethod
	// PaceFactor defaults to DefaultPaceFactor.
	PaceFactor float64
	// MaxSleep defaults to DefaultMaxSleep.
	MaxSleep time.Duration

	// RequestsPerMinute enables a client side ceiling on top of the server's window. Zero
	// disables it.
	RequestsPerMinute float64
	// Burst defaults to DefaultRateLimitBurst when RequestsPerMinute is set.
	Burst int

	// Now and Sleep replace the clock, for tests.
	Now   func() time.Time
	Sleep func(context.Context, time.Duration) error
}

const (
	DefaultRateLimitBurst = 10
	SecondsPerMinute      = 60.0
)

// NewClient returns a new request engine.
// If a nil HTTPClient is provided, http.DefaultClient will be used.
func NewClient(cfg ClientConfig) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: fmt.Sprintf("%q is not an absolute URL", cfg.BaseURL)}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	method := cfg.RateLimitMethod
	switch method {
	case "":
		method = RateLimitWait
	case RateLimitThrow, RateLimitWait, RateLimitPace:
	default:
		return nil, &pkgerrs.ConfigError{Field: "RateLimitMethod", Message: fmt.Sprintf("unknown method %q", method)}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		client:     httpClient,
		BaseURL:    parsedURL,
		UserAgent:  cfg.UserAgent,
		token:      cfg.AccessToken,
		language:   cfg.Language,
		logger:     logger,
		method:     method,
		paceFactor: cfg.PaceFactor,
		maxSleep:   cfg.MaxSleep,
		limiter:    buildLimiter(cfg.RequestsPerMinute, cfg.Burst),
		now:        cfg.Now,
		sleep:      cfg.Sleep,
	}
	if c.paceFactor <= 0 {
		c.paceFactor = DefaultPaceFactor
	}
	if c.maxSleep <= 0 {
		c.maxSleep = DefaultMaxSleep
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	c.window = newRateLimitWindow(c.now())
	return c, nil
}

func buildLimiter(requestsPerMinute float64, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}
	return rate.NewLimiter(rate.Limit(requestsPerMinute/SecondsPerMinute), burst)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Window returns a snapshot of the rate limit window.
func (c *Client) Window() RateLimitWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Request describes one API call.
type Request struct {
	Method string
	// Path is resolved against the base URL; absolute URLs are used as is.
	Path   string
	Params map[string]any
	// JSON sends the params as a JSON body instead of a form.
	JSON  bool
	Files []File
	// Headers are added to the request, e.g. Idempotency-Key.
	Headers map[string]string

	// NoRateLimit disables pacing, waiting and window tracking for this call; a 429 fails
	// immediately.
	NoRateLimit bool
	// NoAuth omits the Authorization header.
	NoAuth bool
	// Raw skips JSON decoding of the body.
	Raw bool
}

// Response is a completed API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Value is the decoded JSON body, with numbers kept as json.Number. Nil for empty bodies.
	Value any
	// Next and Prev are set for JSON array responses with Link pagination.
	Next *entity.Cursor
	Prev *entity.Cursor
	// Params are the normalised parameters actually sent.
	Params map[string]any
}

// Do sends an API request, applying the rate limit policy, and classifies the response.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	params := NormalizeParams(r.Params)
	payload, err := c.buildPayload(r, params)
	if err != nil {
		return nil, &pkgerrs.IllegalArgumentError{Field: "params", Message: err.Error()}
	}
	rateLimited := !r.NoRateLimit

	for {
		if rateLimited && c.method == RateLimitPace {
			if err := c.pace(ctx); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := c.newRequest(ctx, r, payload)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.window.LastCall = c.now()
		c.mu.Unlock()

		c.logger.DebugContext(ctx, "mastodon request", "method", req.Method, "url", req.URL.String())
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, &pkgerrs.NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &pkgerrs.NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
		}
		c.logger.DebugContext(ctx, "mastodon response", "status", resp.StatusCode, "bytes", len(body))

		if rateLimited {
			c.mu.Lock()
			changed := c.window.update(resp.Header, c.now())
			w := c.window
			c.mu.Unlock()
			if changed {
				c.logger.DebugContext(ctx, "rate limit window", "limit", w.Limit, "remaining", w.Remaining, "reset", w.Reset)
			}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay, err := c.rateLimitDelay(rateLimited)
			if err != nil {
				return nil, err
			}
			c.logger.InfoContext(ctx, "rate limited, waiting for reset", "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, classify(resp, body)
		}

		out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body, Params: params}
		if r.Raw || len(bytes.TrimSpace(body)) == 0 {
			return out, nil
		}
		value, err := decodeJSON(body)
		if err != nil {
			return nil, &pkgerrs.APIError{
				StatusCode: resp.StatusCode,
				Reason:     http.StatusText(resp.StatusCode),
				Message:    fmt.Sprintf("could not parse response as JSON, response code was %d", resp.StatusCode),
				Body:       string(body),
				Kind:       pkgerrs.ErrAPI,
				Err:        err,
			}
		}
		out.Value = value
		if _, isArray := value.([]any); isArray {
			out.Next, out.Prev = CursorsFromLinks(resp.Header, r.Method, r.Path, params)
		}
		return out, nil
	}
}

// Open sends a request whose body the caller consumes, such as a streaming connection. No
// rate limit policy is applied. Non-2xx responses are classified and closed.
func (c *Client) Open(ctx context.Context, r *Request) (*http.Response, error) {
	params := NormalizeParams(r.Params)
	payload, err := c.buildPayload(r, params)
	if err != nil {
		return nil, &pkgerrs.IllegalArgumentError{Field: "params", Message: err.Error()}
	}
	req, err := c.newRequest(ctx, r, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &pkgerrs.RateLimitError{Message: "hit rate limit"}
		}
		return nil, classify(resp, body)
	}
	return resp, nil
}

func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	delay := c.window.paceDelay(c.now(), c.paceFactor, c.maxSleep)
	c.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	c.logger.DebugContext(ctx, "pacing request", "delay", delay)
	return c.sleep(ctx, delay)
}

// rateLimitDelay decides what a 429 leads to: a bounded sleep before retrying, or a
// RateLimitError when the policy does not wait or the window has already reset.
func (c *Client) rateLimitDelay(rateLimited bool) (time.Duration, error) {
	c.mu.Lock()
	w := c.window
	now := c.now()
	c.mu.Unlock()

	if !rateLimited || c.method == RateLimitThrow {
		return 0, &pkgerrs.RateLimitError{Reset: w.Reset, Message: "hit rate limit"}
	}
	delay := w.resetDelay(now, c.maxSleep)
	if delay <= 0 {
		return 0, &pkgerrs.RateLimitError{Reset: w.Reset, Message: "hit rate limit and the reported reset time has passed"}
	}
	return delay, nil
}

type payload struct {
	query       url.Values
	body        []byte
	contentType string
}

func (c *Client) buildPayload(r *Request, params map[string]any) (payload, error) {
	var p payload
	if r.Method == http.MethodGet || (len(params) == 0 && len(r.Files) == 0) {
		q, err := EncodeForm(params)
		if err != nil {
			return p, err
		}
		p.query = q
		return p, nil
	}
	switch {
	case len(r.Files) > 0:
		body, ct, err := EncodeMultipart(params, r.Files)
		if err != nil {
			return p, err
		}
		p.body, p.contentType = body, ct
	case r.JSON:
		body, err := EncodeJSON(params)
		if err != nil {
			return p, err
		}
		p.body, p.contentType = body, "application/json"
	default:
		form, err := EncodeForm(params)
		if err != nil {
			return p, err
		}
		p.body, p.contentType = []byte(form.Encode()), "application/x-www-form-urlencoded"
	}
	return p, nil
}

// newRequest creates an API request. A relative path is resolved against the BaseURL of the
// Client.
func (c *Client) newRequest(ctx context.Context, r *Request, p payload) (*http.Request, error) {
	u, err := c.BaseURL.Parse(strings.TrimPrefix(r.Path, "/"))
	if err != nil {
		return nil, &pkgerrs.IllegalArgumentError{Field: "path", Message: err.Error()}
	}
	if len(p.query) > 0 {
		q := u.Query()
		for k, vs := range p.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.IllegalArgumentError{Field: "method", Message: err.Error()}
	}

	if token := c.Token(); token != "" && !r.NoAuth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// classify maps a non-2xx response to an APIError of the matching kind. The server's message
// is taken from {"error": "..."} or a bare JSON string body.
func classify(resp *http.Response, body []byte) error {
	var message string
	if v, err := decodeJSON(body); err == nil {
		switch x := v.(type) {
		case map[string]any:
			if s, ok := x["error"].(string); ok {
				message = s
				if desc, ok := x["error_description"].(string); ok && desc != "" {
					message += ": " + desc
				}
			}
		case string:
			message = x
		}
	}
	return &pkgerrs.APIError{
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		Message:    message,
		Body:       string(body),
		Kind:       pkgerrs.KindForStatus(resp.StatusCode),
	}
}
