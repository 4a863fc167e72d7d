package test_helpers

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	mastodon "github.com/jamesprial/go-mastodon-api-wrapper"
)

// MockClientConfig configures the client created by NewTestClient.
type MockClientConfig struct {
	Version          string
	AccessToken      string
	UserAgent        string
	Timeout          time.Duration
	RateLimitMethod  mastodon.RateLimitMethod
	MaxSleep         time.Duration
	VersionCheckMode mastodon.VersionCheckMode
	Logger           *slog.Logger
}

// DefaultMockClientConfig returns a configuration for a logged in client of a 4.2.0 server.
func DefaultMockClientConfig() MockClientConfig {
	return MockClientConfig{
		Version:     "4.2.0",
		AccessToken: "test-token",
		UserAgent:   "go-mastodon-api-wrapper-tests/1.0",
		Timeout:     5 * time.Second,
		MaxSleep:    2 * time.Second,
	}
}

// TestClient provides a wrapper around the Mastodon client for testing
type TestClient struct {
	*mastodon.Client
	mockServer *MockServer
}

// NewTestClient creates a new test client with its own mock server. Both are closed when the
// test ends.
func NewTestClient(t testing.TB, config *MockClientConfig) *TestClient {
	t.Helper()
	if config == nil {
		defaultConfig := DefaultMockClientConfig()
		config = &defaultConfig
	}

	mockServer := NewMockServer(config.Version)
	t.Cleanup(mockServer.Close)

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := mastodon.NewClient(&mastodon.Config{
		BaseURL:           mockServer.URL(),
		AccessToken:       config.AccessToken,
		ClientID:          "test_client_id",
		ClientSecret:      "test_client_secret",
		UserAgent:         config.UserAgent,
		HTTPClient:        &http.Client{Timeout: config.Timeout},
		Logger:            logger,
		RateLimitMethod:   config.RateLimitMethod,
		RateLimitMaxSleep: config.MaxSleep,
		VersionCheckMode:  config.VersionCheckMode,
	})
	if err != nil {
		t.Fatalf("failed to create mastodon client: %v", err)
	}

	return &TestClient{
		Client:     client,
		mockServer: mockServer,
	}
}

// MockServer returns the underlying mock server
func (tc *TestClient) MockServer() *MockServer {
	return tc.mockServer
}

// Reset resets the mock server's request log
func (tc *TestClient) Reset() {
	tc.mockServer.ClearLog()
}

// ConcurrentTestHelper runs one client per goroutine, each against its own server.
type ConcurrentTestHelper struct {
	clients []*TestClient
}

// NewConcurrentTestHelper creates a helper for concurrent testing
func NewConcurrentTestHelper(t testing.TB, clientCount int, config *MockClientConfig) *ConcurrentTestHelper {
	t.Helper()
	helper := &ConcurrentTestHelper{clients: make([]*TestClient, clientCount)}
	for i := range helper.clients {
		helper.clients[i] = NewTestClient(t, config)
	}
	return helper
}

// Clients returns all clients.
func (cth *ConcurrentTestHelper) Clients() []*TestClient {
	return cth.clients
}

// RunConcurrentTest runs testFunc once per client, concurrently, and returns the errors in
// client order.
func (cth *ConcurrentTestHelper) RunConcurrentTest(testFunc func(*TestClient) error) []error {
	errs := make([]error, len(cth.clients))
	var wg sync.WaitGroup
	for i, client := range cth.clients {
		wg.Add(1)
		go func(i int, client *TestClient) {
			defer wg.Done()
			errs[i] = testFunc(client)
		}(i, client)
	}
	wg.Wait()
	return errs
}
