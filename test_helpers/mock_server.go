package test_helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/jamesprial/go-mastodon-api-wrapper/test_generators"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 40
)

// MockServer provides a configurable mock Mastodon API server for testing
type MockServer struct {
	server  *httptest.Server
	router  *mux.Router
	handler *MockHandler

	requestLog []RequestEntry
	logMutex   sync.Mutex
	callCount  map[string]int
	countMutex sync.Mutex
}

// RequestEntry logs incoming requests for debugging
type RequestEntry struct {
	Method    string
	Path      string
	Query     url.Values
	Headers   http.Header
	Body      string
	Timestamp time.Time
}

// MockHandler holds the configured overrides and server state.
type MockHandler struct {
	responses map[string]*MockResponse
	delay     time.Duration
	errorRate float64

	version    string
	statuses   map[int]map[string]any
	contexts   map[int]map[string]any
	media      map[string][]map[string]any
	events     []StreamEvent
	streamHold bool
	rateLimit  *rateLimitHeaders
	generator  *test_generators.StatusGenerator
	nextID     int

	mutex sync.RWMutex
}

// MockResponse defines a canned response that replaces the route's default behaviour.
type MockResponse struct {
	Status    int
	Body      string
	Headers   map[string]string
	Delay     time.Duration
	CallCount int
	MaxCalls  int // 0 = unlimited
}

// StreamEvent is one server sent event emitted by the streaming route. An empty Name sends a
// heartbeat comment.
type StreamEvent struct {
	Name string
	Data string
}

type rateLimitHeaders struct {
	limit     int
	remaining int
	reset     time.Time
}

// NewMockServer creates a new mock server answering as a server of the given version.
func NewMockServer(version string) *MockServer {
	if version == "" {
		version = "4.2.0"
	}
	handler := &MockHandler{
		responses: make(map[string]*MockResponse),
		version:   version,
		statuses:  make(map[int]map[string]any),
		contexts:  make(map[int]map[string]any),
		media:     make(map[string][]map[string]any),
		generator: test_generators.NewStatusGenerator(42),
		nextID:    1000,
	}
	ms := &MockServer{
		handler:   handler,
		callCount: make(map[string]int),
	}
	ms.router = ms.routes()
	ms.server = httptest.NewServer(ms.router)
	return ms
}

// URL returns the base URL of the mock server
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.CloseClientConnections()
	ms.server.Close()
}

// Client returns an HTTP client for the mock server.
func (ms *MockServer) Client() *http.Client {
	return ms.server.Client()
}

// Generator returns the generator the server builds its data with.
func (ms *MockServer) Generator() *test_generators.StatusGenerator {
	return ms.handler.generator
}

// SetResponse configures a response for a method and path, e.g. "GET /api/v1/instance". A
// path without method matches every method.
func (ms *MockServer) SetResponse(path string, response *MockResponse) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.responses[path] = response
}

// SetDelay adds delay to all responses
func (ms *MockServer) SetDelay(delay time.Duration) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.delay = delay
}

// SetErrorRate makes a share of requests (0.0 to 1.0) fail with 503.
func (ms *MockServer) SetErrorRate(rate float64) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.errorRate = rate
}

// SetVersion changes the version reported by the instance route.
func (ms *MockServer) SetVersion(version string) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.version = version
}

// SetStatuses stores generated statuses with ids 1..count, served by the timeline routes.
func (ms *MockServer) SetStatuses(count int) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.statuses = make(map[int]map[string]any, count)
	for _, st := range ms.handler.generator.GenerateStatuses(count) {
		id, _ := strconv.Atoi(st["id"].(string))
		ms.handler.statuses[id] = st
	}
}

// AddStatus stores a status; its id must be numeric.
func (ms *MockServer) AddStatus(status map[string]any) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	id, _ := strconv.Atoi(fmt.Sprint(status["id"]))
	ms.handler.statuses[id] = status
}

// SetContext configures the context returned for a status.
func (ms *MockServer) SetContext(id int, ancestors, descendants []map[string]any) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.contexts[id] = map[string]any{"ancestors": ancestors, "descendants": descendants}
}

// SetMediaStates configures the successive states returned for a media attachment. The last
// state is repeated.
func (ms *MockServer) SetMediaStates(id string, states ...map[string]any) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.media[id] = states
}

// SetStreamEvents configures the events sent by the streaming routes. With hold the stream
// stays open after the events until the client disconnects; otherwise the server closes it.
func (ms *MockServer) SetStreamEvents(hold bool, events ...StreamEvent) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.events = events
	ms.handler.streamHold = hold
}

// SetupRateLimit adds X-RateLimit headers to every response.
func (ms *MockServer) SetupRateLimit(limit, remaining int, reset time.Time) {
	ms.handler.mutex.Lock()
	defer ms.handler.mutex.Unlock()
	ms.handler.rateLimit = &rateLimitHeaders{limit: limit, remaining: remaining, reset: reset}
}

// SetupError makes every request to path fail with the given status and message.
func (ms *MockServer) SetupError(path string, statusCode int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	ms.SetResponse(path, &MockResponse{Status: statusCode, Body: string(body)})
}

// GetRequestLog returns the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path
func (ms *MockServer) GetCallCount(path string) int {
	ms.countMutex.Lock()
	defer ms.countMutex.Unlock()
	return ms.callCount[path]
}

// ClearLog clears the request log
func (ms *MockServer) ClearLog() {
	ms.logMutex.Lock()
	ms.requestLog = ms.requestLog[:0]
	ms.logMutex.Unlock()

	ms.countMutex.Lock()
	ms.callCount = make(map[string]int)
	ms.countMutex.Unlock()
}

// WaitForRequests waits until count requests were logged.
func (ms *MockServer) WaitForRequests(count int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ms.logMutex.Lock()
		n := len(ms.requestLog)
		ms.logMutex.Unlock()
		if n >= count {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for %d requests", count)
}

// AssertRequestCount checks how often path was requested.
func (ms *MockServer) AssertRequestCount(path string, expectedCount int) error {
	if actual := ms.GetCallCount(path); actual != expectedCount {
		return fmt.Errorf("expected %d requests to %s, got %d", expectedCount, path, actual)
	}
	return nil
}

// GetLastRequest returns the most recent request to path.
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.logMutex.Lock()
	defer ms.logMutex.Unlock()
	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			entry := ms.requestLog[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("no requests found for path %s", path)
}

func (ms *MockServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(ms.logRequests, ms.overrides)

	r.HandleFunc("/api/v1/instance", ms.instance).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/accounts/verify_credentials", ms.verifyCredentials).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/timelines/home", ms.timeline).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/timelines/public", ms.timeline).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/timelines/tag/{tag}", ms.timeline).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/statuses", ms.postStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/statuses/{id:[0-9]+}", ms.status).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/api/v1/statuses/{id:[0-9]+}/context", ms.statusContext).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/media/{id}", ms.mediaState).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/apps", ms.createApp).Methods(http.MethodPost)
	r.HandleFunc("/oauth/token", ms.token).Methods(http.MethodPost)
	r.HandleFunc("/oauth/revoke", ms.revoke).Methods(http.MethodPost)
	r.PathPrefix("/api/v1/streaming/").HandlerFunc(ms.stream).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/nodeinfo", ms.nodeInfoLinks).Methods(http.MethodGet)
	r.HandleFunc("/nodeinfo/2.0", ms.nodeInfo).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Record not found"})
	})
	return r
}

func (ms *MockServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		ms.logMutex.Lock()
		ms.requestLog = append(ms.requestLog, RequestEntry{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			Headers:   r.Header.Clone(),
			Body:      string(body),
			Timestamp: time.Now(),
		})
		ms.logMutex.Unlock()

		ms.countMutex.Lock()
		ms.callCount[r.URL.Path]++
		ms.countMutex.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (ms *MockServer) overrides(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := ms.handler
		h.mutex.Lock()
		delay, errorRate := h.delay, h.errorRate
		resp := h.responses[r.Method+" "+r.URL.Path]
		if resp == nil {
			resp = h.responses[r.URL.Path]
		}
		if resp != nil {
			if resp.MaxCalls > 0 && resp.CallCount >= resp.MaxCalls {
				resp = nil
			} else {
				resp.CallCount++
			}
		}
		rl := h.rateLimit
		h.mutex.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if rl != nil {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.remaining))
			w.Header().Set("X-RateLimit-Reset", rl.reset.UTC().Format("2006-01-02T15:04:05.000Z"))
		}
		if errorRate > 0 && rand.Float64() < errorRate {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service Unavailable"})
			return
		}
		if resp != nil {
			if resp.Delay > 0 {
				time.Sleep(resp.Delay)
			}
			for k, v := range resp.Headers {
				w.Header().Set(k, v)
			}
			if w.Header().Get("Content-Type") == "" {
				w.Header().Set("Content-Type", "application/json")
			}
			status := resp.Status
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			io.WriteString(w, resp.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ms *MockServer) instance(w http.ResponseWriter, _ *http.Request) {
	ms.handler.mutex.RLock()
	version := ms.handler.version
	ms.handler.mutex.RUnlock()
	writeJSON(w, http.StatusOK, ms.handler.generator.GenerateInstance(version))
}

func (ms *MockServer) nodeInfoLinks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"links": []map[string]string{{
			"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
			"href": ms.server.URL + "/nodeinfo/2.0",
		}},
	})
}

func (ms *MockServer) nodeInfo(w http.ResponseWriter, _ *http.Request) {
	ms.handler.mutex.RLock()
	version := ms.handler.version
	ms.handler.mutex.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":           "2.0",
		"software":          map[string]string{"name": "mastodon", "version": version},
		"protocols":         []string{"activitypub"},
		"openRegistrations": true,
		"usage":             map[string]any{"users": map[string]int{"total": 1}},
	})
}

func (ms *MockServer) verifyCredentials(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "The access token is invalid"})
		return
	}
	writeJSON(w, http.StatusOK, ms.handler.generator.GenerateAccount(1))
}

// timeline serves the stored statuses newest first, honouring limit, max_id, since_id and
// min_id. A next link is only sent while older statuses remain.
func (ms *MockServer) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultPageLimit
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageLimit)
	}
	maxID, hasMax := intParam(q, "max_id")
	sinceID, hasSince := intParam(q, "since_id")
	minID, hasMin := intParam(q, "min_id")

	ms.handler.mutex.RLock()
	ids := make([]int, 0, len(ms.handler.statuses))
	for id := range ms.handler.statuses {
		if hasMax && id >= maxID {
			continue
		}
		if hasSince && id <= sinceID {
			continue
		}
		if hasMin && id <= minID {
			continue
		}
		ids = append(ids, id)
	}
	if hasMin {
		// Statuses right after min_id, still returned newest first.
		sort.Ints(ids)
		if len(ids) > limit {
			ids = ids[:limit]
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(ids)))
		if len(ids) > limit {
			ids = ids[:limit]
		}
	}
	page := make([]map[string]any, 0, len(ids))
	olderExists := false
	for _, id := range ids {
		page = append(page, ms.handler.statuses[id])
	}
	if len(ids) > 0 {
		oldest := ids[len(ids)-1]
		for id := range ms.handler.statuses {
			if id < oldest {
				olderExists = true
				break
			}
		}
	}
	ms.handler.mutex.RUnlock()

	if len(ids) > 0 {
		var links []string
		if olderExists {
			links = append(links, fmt.Sprintf(`<%s>; rel="next"`, ms.pageURL(r, "max_id", ids[len(ids)-1], limit)))
		}
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, ms.pageURL(r, "min_id", ids[0], limit)))
		w.Header().Set("Link", strings.Join(links, ", "))
	}
	writeJSON(w, http.StatusOK, page)
}

func (ms *MockServer) pageURL(r *http.Request, key string, id, limit int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set(key, strconv.Itoa(id))
	return ms.server.URL + r.URL.Path + "?" + q.Encode()
}

func intParam(q url.Values, key string) (int, bool) {
	v, err := strconv.Atoi(q.Get(key))
	return v, err == nil
}

func (ms *MockServer) status(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	ms.handler.mutex.Lock()
	st, ok := ms.handler.statuses[id]
	if ok && r.Method == http.MethodDelete {
		delete(ms.handler.statuses, id)
	}
	ms.handler.mutex.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Record not found"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (ms *MockServer) statusContext(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	ms.handler.mutex.RLock()
	sc, ok := ms.handler.contexts[id]
	ms.handler.mutex.RUnlock()
	if !ok {
		sc = map[string]any{"ancestors": []any{}, "descendants": []any{}}
	}
	writeJSON(w, http.StatusOK, sc)
}

// postStatus accepts JSON or form bodies.
func (ms *MockServer) postStatus(w http.ResponseWriter, r *http.Request) {
	fields := map[string]any{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
	}
	text, _ := fields["status"].(string)
	if text == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "Validation failed: Text can't be blank"})
		return
	}

	ms.handler.mutex.Lock()
	ms.handler.nextID++
	id := ms.handler.nextID
	opts := test_generators.StatusOptions{AccountID: 1}
	if reply, ok := fields["in_reply_to_id"].(string); ok {
		opts.InReplyToID = reply
	}
	st := ms.handler.generator.GenerateStatusWithOptions(id, opts)
	st["content"] = "<p>" + text + "</p>"
	if v, ok := fields["visibility"].(string); ok && v != "" {
		st["visibility"] = v
	}
	if v, ok := fields["spoiler_text"].(string); ok {
		st["spoiler_text"] = v
	}
	ms.handler.statuses[id] = st
	ms.handler.mutex.Unlock()

	writeJSON(w, http.StatusOK, st)
}

func (ms *MockServer) mediaState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ms.handler.mutex.Lock()
	states := ms.handler.media[id]
	var state map[string]any
	if len(states) > 0 {
		state = states[0]
		if len(states) > 1 {
			ms.handler.media[id] = states[1:]
		}
	}
	ms.handler.mutex.Unlock()
	if state == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Record not found"})
		return
	}
	if state["url"] == nil {
		// Still processing.
		writeJSON(w, http.StatusPartialContent, state)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (ms *MockServer) createApp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	name := r.PostForm.Get("client_name")
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "Validation failed: Application name can't be blank"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            "563419",
		"name":          name,
		"website":       r.PostForm.Get("website"),
		"redirect_uri":  r.PostForm.Get("redirect_uris"),
		"client_id":     "client-" + name,
		"client_secret": "secret-" + name,
		"vapid_key":     "BCk-QqERU0q-CfYZjcuB6lnyyOYfJ2AifKqfeGIm7Z-HiTU5T9eTG5GxVA0_OH5mMlI4UkkDTpaZwozy0TzdZ2M=",
	})
}

// token implements the password, client_credentials and authorization_code grants.
func (ms *MockServer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if r.PostForm.Get("client_id") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	var token string
	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("password") != "correct horse" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "The provided authorization grant is invalid",
			})
			return
		}
		token = "user-token-" + r.PostForm.Get("username")
	case "client_credentials":
		token = "app-token"
	case "authorization_code":
		if r.PostForm.Get("code") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		token = "code-token-" + r.PostForm.Get("code")
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"scope":        r.PostForm.Get("scope"),
		"created_at":   time.Now().Unix(),
	})
}

func (ms *MockServer) revoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("token") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// stream writes the configured events as server sent events.
func (ms *MockServer) stream(w http.ResponseWriter, r *http.Request) {
	ms.handler.mutex.RLock()
	events := append([]StreamEvent(nil), ms.handler.events...)
	hold := ms.handler.streamHold
	ms.handler.mutex.RUnlock()

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, ev := range events {
		if ev.Name == "" {
			io.WriteString(w, ":thump\n\n")
		} else {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if hold {
		<-r.Context().Done()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
