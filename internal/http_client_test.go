package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSleeper records requested sleeps without blocking.
type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeSleeper) recorded() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

func newTestClient(t *testing.T, srv *httptest.Server, method RateLimitMethod, sleeper *fakeSleeper) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		HTTPClient:      srv.Client(),
		BaseURL:         srv.URL,
		AccessToken:     "token-value",
		UserAgent:       "my-agent",
		RateLimitMethod: method,
		Now:             func() time.Time { return testNow },
		Sleep:           sleeper.Sleep,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

// setWindow writes rate limit headers whose Date matches the fake clock.
func setWindow(w http.ResponseWriter, remaining int, reset time.Time) {
	w.Header().Set("Date", testNow.Format(http.TimeFormat))
	w.Header().Set("X-RateLimit-Limit", "300")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", reset.Format(time.RFC3339))
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(ClientConfig{BaseURL: "https://mastodon.example/api"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if got := c.BaseURL.String(); got != "https://mastodon.example/api/" {
		t.Errorf("expected base URL to gain trailing slash, got %q", got)
	}
	if c.method != RateLimitWait {
		t.Errorf("expected default method wait, got %q", c.method)
	}
	if c.paceFactor != DefaultPaceFactor {
		t.Errorf("expected pace factor %v, got %v", DefaultPaceFactor, c.paceFactor)
	}
	if c.maxSleep != DefaultMaxSleep {
		t.Errorf("expected max sleep %v, got %v", DefaultMaxSleep, c.maxSleep)
	}
	if c.limiter != nil {
		t.Error("expected no client side limiter by default")
	}
	w := c.Window()
	if w.Limit != DefaultRateLimit || w.Remaining != DefaultRateLimit {
		t.Errorf("expected permissive initial window, got %+v", w)
	}
}

func TestNewClient_CustomLimiterConfig(t *testing.T) {
	c, err := NewClient(ClientConfig{BaseURL: "https://mastodon.example", RequestsPerMinute: 120, Burst: 5})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.limiter == nil {
		t.Fatal("expected limiter to be initialized")
	}
	if got := c.limiter.Limit(); got != rate.Limit(2) {
		t.Errorf("expected limit of 2 req/sec, got %v", got)
	}
	if got := c.limiter.Burst(); got != 5 {
		t.Errorf("expected burst of 5, got %d", got)
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ClientConfig
		field string
	}{
		{name: "unparsable url", cfg: ClientConfig{BaseURL: "://bad"}, field: "BaseURL"},
		{name: "relative url", cfg: ClientConfig{BaseURL: "mastodon.example"}, field: "BaseURL"},
		{name: "unknown method", cfg: ClientConfig{BaseURL: "https://mastodon.example", RateLimitMethod: "sometimes"}, field: "RateLimitMethod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			var cfgErr *pkgerrs.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestClient_DoSetsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		fmt.Fprint(w, `{"id": "1"}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	c.language = "de"
	_, err := c.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		Path:    "/api/v1/timelines/home",
		Params:  map[string]any{"limit": 5, "local": true, "only_media": nil, "types": []string{"mention", "follow"}},
		Headers: map[string]string{"X-Test": "yes"},
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	if h := got.Header.Get("Authorization"); h != "Bearer token-value" {
		t.Errorf("expected bearer token, got %q", h)
	}
	if h := got.Header.Get("User-Agent"); h != "my-agent" {
		t.Errorf("expected user agent, got %q", h)
	}
	if h := got.Header.Get("Accept-Language"); h != "de" {
		t.Errorf("expected Accept-Language de, got %q", h)
	}
	if h := got.Header.Get("X-Test"); h != "yes" {
		t.Errorf("expected extra header, got %q", h)
	}
	if got.URL.Path != "/api/v1/timelines/home" {
		t.Errorf("unexpected path %q", got.URL.Path)
	}
	q := got.URL.Query()
	if q.Get("limit") != "5" || q.Get("local") != "true" {
		t.Errorf("unexpected query %v", q)
	}
	if q.Has("only_media") {
		t.Error("nil parameters must not be sent")
	}
	if types := q["types[]"]; len(types) != 2 || types[0] != "mention" {
		t.Errorf("expected types[] to repeat, got %v", q)
	}
}

func TestClient_DoNoAuth(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/instance", NoAuth: true}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if auth != "" {
		t.Errorf("expected no Authorization header, got %q", auth)
	}
}

func TestClient_DoBodies(t *testing.T) {
	tests := []struct {
		name        string
		req         *Request
		contentType string
		check       func(t *testing.T, body string)
	}{
		{
			name:        "form",
			req:         &Request{Method: http.MethodPost, Path: "api/v1/statuses", Params: map[string]any{"status": "hello", "sensitive": false}},
			contentType: "application/x-www-form-urlencoded",
			check: func(t *testing.T, body string) {
				if body != "sensitive=false&status=hello" {
					t.Errorf("unexpected form body %q", body)
				}
			},
		},
		{
			name:        "json",
			req:         &Request{Method: http.MethodPut, Path: "api/v1/statuses/1", Params: map[string]any{"status": "edited"}, JSON: true},
			contentType: "application/json",
			check: func(t *testing.T, body string) {
				var m map[string]any
				if err := json.Unmarshal([]byte(body), &m); err != nil || m["status"] != "edited" {
					t.Errorf("unexpected json body %q", body)
				}
			},
		},
		{
			name: "multipart",
			req: &Request{Method: http.MethodPost, Path: "api/v2/media", Params: map[string]any{"description": "a cat"},
				Files: []File{{Field: "file", Name: "/tmp/cat.png", MIMEType: "image/png", Reader: strings.NewReader("PNGDATA")}}},
			contentType: "multipart/form-data",
			check: func(t *testing.T, body string) {
				for _, want := range []string{`name="description"`, "a cat", `filename="cat.png"`, "Content-Type: image/png", "PNGDATA"} {
					if !strings.Contains(body, want) {
						t.Errorf("multipart body missing %q", want)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body, ct string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				body, ct = string(b), r.Header.Get("Content-Type")
				fmt.Fprint(w, `{}`)
			}))
			defer server.Close()

			c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
			if _, err := c.Do(context.Background(), tt.req); err != nil {
				t.Fatalf("Do returned error: %v", err)
			}
			if !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("expected content type %q, got %q", tt.contentType, ct)
			}
			tt.check(t, body)
		})
	}
}

func TestClient_DoDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "109", "followers_count": 12}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/accounts/109"})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	m, ok := resp.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", resp.Value)
	}
	if m["followers_count"] != json.Number("12") {
		t.Errorf("expected numbers to be kept as json.Number, got %#v", m["followers_count"])
	}
	if resp.Next != nil || resp.Prev != nil {
		t.Error("objects never carry cursors")
	}
}

func TestClient_DoEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodPost, Path: "api/v1/notifications/clear"})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if resp.Value != nil {
		t.Errorf("expected nil value, got %#v", resp.Value)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_DoTransportErrorWrapped(t *testing.T) {
	expectedErr := errors.New("boom")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, expectedErr
	})}

	c, err := NewClient(ClientConfig{HTTPClient: httpClient, BaseURL: "https://mastodon.example/"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/instance"})
	var netErr *pkgerrs.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T", err)
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected wrapped error %v, got %v", expectedErr, err)
	}
}

func TestClient_ErrorCodeMapping(t *testing.T) {
	tests := []struct {
		status  int
		kind    error
		server  bool
		body    string
		message string
	}{
		{status: 404, kind: pkgerrs.ErrNotFound, body: `{"error": "Record not found"}`, message: "Record not found"},
		{status: 401, kind: pkgerrs.ErrUnauthorized, body: `{"error": "The access token is invalid"}`, message: "The access token is invalid"},
		{status: 500, kind: pkgerrs.ErrInternalServerError, server: true},
		{status: 502, kind: pkgerrs.ErrBadGateway, server: true},
		{status: 503, kind: pkgerrs.ErrServiceUnavailable, server: true},
		{status: 504, kind: pkgerrs.ErrGatewayTimeout, server: true},
		{status: 507, kind: pkgerrs.ErrServerError, server: true},
		{status: 422, kind: pkgerrs.ErrAPI, body: `"Validation failed"`, message: "Validation failed"},
		{status: 403, kind: pkgerrs.ErrAPI, body: `{"error": "invalid_token", "error_description": "revoked"}`, message: "invalid_token: revoked"},
	}

	specific := []error{pkgerrs.ErrNotFound, pkgerrs.ErrUnauthorized, pkgerrs.ErrInternalServerError, pkgerrs.ErrBadGateway, pkgerrs.ErrServiceUnavailable, pkgerrs.ErrGatewayTimeout}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
			_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/statuses/1"})

			var apiErr *pkgerrs.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected errors.Is(err, %v)", tt.kind)
			}
			if !errors.Is(err, pkgerrs.ErrAPI) {
				t.Error("every APIError must match ErrAPI")
			}
			if got := errors.Is(err, pkgerrs.ErrServerError); got != tt.server {
				t.Errorf("ErrServerError match = %v, want %v", got, tt.server)
			}
			for _, k := range specific {
				if k != tt.kind && errors.Is(err, k) {
					t.Errorf("status %d must not match %v", tt.status, k)
				}
			}
			if apiErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "1",`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/statuses/1"})
	var apiErr *pkgerrs.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Kind != pkgerrs.ErrAPI || apiErr.StatusCode != http.StatusOK {
		t.Errorf("expected generic API error with status 200, got %+v", apiErr)
	}
	if apiErr.Body != `{"id": "1",` {
		t.Errorf("expected raw body to be kept, got %q", apiErr.Body)
	}
}

func TestClient_RateLimitThrow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setWindow(w, 0, testNow.Add(time.Minute))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c := newTestClient(t, server, RateLimitThrow, sleeper)
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"})
	var rlErr *pkgerrs.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if !rlErr.Reset.Equal(testNow.Add(time.Minute)) {
		t.Errorf("expected reset %v, got %v", testNow.Add(time.Minute), rlErr.Reset)
	}
	if len(sleeper.recorded()) != 0 {
		t.Error("throw must not sleep")
	}
}

func TestClient_RateLimitWaitRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			setWindow(w, 0, testNow.Add(30*time.Second))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		setWindow(w, 299, testNow.Add(5*time.Minute))
		fmt.Fprint(w, `{"ok": true}`)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c := newTestClient(t, server, RateLimitWait, sleeper)
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if got := sleeper.recorded(); len(got) != 1 || got[0] != 30*time.Second {
		t.Errorf("expected a single 30s sleep, got %v", got)
	}
	if w := c.Window(); w.Remaining != 299 {
		t.Errorf("expected window to be updated, got %+v", w)
	}
}

func TestClient_RateLimitWaitCapped(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			setWindow(w, 0, testNow.Add(2*time.Hour))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c := newTestClient(t, server, RateLimitWait, sleeper)
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got := sleeper.recorded(); len(got) != 1 || got[0] != DefaultMaxSleep {
		t.Errorf("expected sleep capped at %v, got %v", DefaultMaxSleep, got)
	}
}

func TestClient_RateLimitResetPassed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setWindow(w, 0, testNow.Add(-10*time.Second))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"})
	if !pkgerrs.IsRateLimited(err) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestClient_RateLimitDisabledForCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c := newTestClient(t, server, RateLimitPace, sleeper)
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x", NoRateLimit: true})
	if !pkgerrs.IsRateLimited(err) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if len(sleeper.recorded()) != 0 {
		t.Error("disabled rate limiting must not sleep")
	}
}

func TestClient_PaceSleepBound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The window is exhausted and resets far beyond the sleep bound.
		setWindow(w, 0, testNow.Add(3*time.Hour))
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c := newTestClient(t, server, RateLimitPace, sleeper)
	for i := 0; i < 3; i++ {
		if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"}); err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
	}
	got := sleeper.recorded()
	if len(got) != 2 {
		t.Fatalf("expected the 2nd and 3rd request to be paced, got %v", got)
	}
	for _, d := range got {
		if d > 300*time.Second {
			t.Errorf("pace slept %v, more than the 300s bound", d)
		}
		if d != DefaultMaxSleep {
			t.Errorf("expected sleep of exactly %v, got %v", DefaultMaxSleep, d)
		}
	}
}

func TestClient_PaceSpacing(t *testing.T) {
	now := testNow
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 100 calls left for the next 200 seconds: ideal spacing is 2s.
		setWindow(w, 100, testNow.Add(200*time.Second))
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	sleeper := &fakeSleeper{}
	c, err := NewClient(ClientConfig{
		HTTPClient:      server.Client(),
		BaseURL:         server.URL,
		RateLimitMethod: RateLimitPace,
		PaceFactor:      2,
		Now:             func() time.Time { return now },
		Sleep:           sleeper.Sleep,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"}); err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
	}
	got := sleeper.recorded()
	if len(got) != 1 {
		t.Fatalf("expected one paced sleep, got %v", got)
	}
	if got[0] != time.Second {
		t.Errorf("expected 2s spacing scaled by 2 to be 1s, got %v", got[0])
	}
}

func TestClient_PaceCancelled(t *testing.T) {
	c, err := NewClient(ClientConfig{BaseURL: "https://mastodon.example", RateLimitMethod: RateLimitPace})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	c.window.Remaining = 0
	c.window.Reset = time.Now().Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Do(ctx, &Request{Method: http.MethodGet, Path: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClient_LinkCursors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := "https://mastodon.example/api/v1/timelines/home"
		w.Header().Add("Link", fmt.Sprintf(`<%s?max_id=abc1234>; rel="next", <%s?since_id=abc1234>; rel="prev"`, base, base))
		fmt.Fprint(w, `[{"id": "abc1235"}, {"id": "abc1234"}]`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	resp, err := c.Do(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "api/v1/timelines/home",
		Params: map[string]any{"limit": 5, "min_id": "1", "since_id": "2"},
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if resp.Next == nil || resp.Prev == nil {
		t.Fatalf("expected both cursors, got next=%v prev=%v", resp.Next, resp.Prev)
	}
	if resp.Next.Params["max_id"] != "abc1234" {
		t.Errorf("expected next max_id abc1234, got %#v", resp.Next.Params["max_id"])
	}
	if _, ok := resp.Next.Params["since_id"]; ok {
		t.Error("next cursor must drop since_id")
	}
	if _, ok := resp.Next.Params["min_id"]; ok {
		t.Error("next cursor must drop min_id")
	}
	if resp.Prev.Params["since_id"] != "abc1234" {
		t.Errorf("expected prev since_id abc1234, got %#v", resp.Prev.Params["since_id"])
	}
	if resp.Next.Method != http.MethodGet || resp.Next.Endpoint != "api/v1/timelines/home" {
		t.Errorf("cursor must repeat the request, got %+v", resp.Next)
	}
	if resp.Params["since_id"] != "2" {
		t.Error("building cursors must not modify the request params")
	}

	l := NewParser(entity.DefaultRegistry).ParseList(resp, entity.PaginatableList(entity.Generic()))
	if l.Len() != 2 || l.Next == nil || l.Prev == nil {
		t.Fatalf("expected a paginated list, got %+v", l)
	}
}

func TestClient_SetToken(t *testing.T) {
	var auth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	c.SetToken("fresh")
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "x"}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got := auth.Load(); got != "Bearer fresh" {
		t.Errorf("expected replaced token, got %v", got)
	}
	if c.Token() != "fresh" {
		t.Errorf("unexpected token %q", c.Token())
	}
}

func TestClient_Open(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/streaming/user":
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, ":thump\n\n")
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "no"}`)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server, RateLimitWait, &fakeSleeper{})
	resp, err := c.Open(context.Background(), &Request{Method: http.MethodGet, Path: "api/v1/streaming/user"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != ":thump\n\n" {
		t.Errorf("unexpected body %q", body)
	}

	if _, err := c.Open(context.Background(), &Request{Method: http.MethodGet, Path: "limited"}); !pkgerrs.IsRateLimited(err) {
		t.Errorf("expected RateLimitError, got %v", err)
	}
	if _, err := c.Open(context.Background(), &Request{Method: http.MethodGet, Path: "denied"}); !pkgerrs.IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}
