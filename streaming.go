package mastodon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/internal"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/validation"
)

const (
	// DefaultReconnectWait is the pause before StreamAsync reconnects a dropped stream.
	DefaultReconnectWait = 5 * time.Second

	// Status payloads can exceed bufio's default token size.
	maxStreamLine = 4 << 20
)

// StreamListener receives the events of a stream. Embed StreamHandler to implement only the
// events you need.
type StreamListener interface {
	// OnUpdate is called for a new status.
	OnUpdate(status types.Status)
	// OnStatusUpdate is called when a status was edited.
	OnStatusUpdate(status types.Status)
	// OnNotification is called for a new notification of the logged in user.
	OnNotification(notification types.Notification)
	// OnDelete is called with the id of a deleted status.
	OnDelete(id ID)
	// OnConversation is called when a direct conversation changed.
	OnConversation(conversation types.Conversation)
	// OnUnknownEvent is called for any other event, with its decoded payload.
	OnUnknownEvent(name string, payload any)
	// OnAbort is called when the stream fails, before StreamAsync reconnects.
	OnAbort(err error)
	// HandleHeartbeat is called for the server's keepalive comments.
	HandleHeartbeat()
}

// StreamHandler implements StreamListener with methods that do nothing.
type StreamHandler struct{}

func (StreamHandler) OnUpdate(types.Status)             {}
func (StreamHandler) OnStatusUpdate(types.Status)       {}
func (StreamHandler) OnNotification(types.Notification) {}
func (StreamHandler) OnDelete(ID)                       {}
func (StreamHandler) OnConversation(types.Conversation) {}
func (StreamHandler) OnUnknownEvent(string, any)        {}
func (StreamHandler) OnAbort(error)                     {}
func (StreamHandler) HandleHeartbeat()                  {}

// StreamTimeline selects what a stream delivers.
type StreamTimeline struct {
	Name   string
	Params map[string]any
}

// UserStream delivers the home timeline and notifications of the logged in user.
func UserStream() StreamTimeline {
	return StreamTimeline{Name: "user"}
}

// PublicStream delivers all public statuses, or only local ones.
func PublicStream(local bool) StreamTimeline {
	if local {
		return StreamTimeline{Name: "public/local"}
	}
	return StreamTimeline{Name: "public"}
}

// HashtagStream delivers public statuses using hashtag, given without the leading #.
func HashtagStream(hashtag string, local bool) StreamTimeline {
	name := "hashtag"
	if local {
		name = "hashtag/local"
	}
	return StreamTimeline{Name: name, Params: map[string]any{"tag": hashtag}}
}

// ListStream delivers the statuses of one of the user's lists.
func ListStream(listID ID) StreamTimeline {
	return StreamTimeline{Name: "list", Params: map[string]any{"list": listID}}
}

// DirectStream delivers the user's direct conversations.
func DirectStream() StreamTimeline {
	return StreamTimeline{Name: "direct"}
}

func (t StreamTimeline) validate() error {
	if t.Name == "" {
		return &pkgerrs.IllegalArgumentError{Field: "timeline", Message: "stream name is required"}
	}
	if strings.HasPrefix(t.Name, "hashtag") {
		tag, _ := t.Params["tag"].(string)
		if !validation.IsValidHashtag(tag) {
			return &pkgerrs.IllegalArgumentError{Field: "tag", Message: "hashtag is required and must not start with #"}
		}
	}
	return nil
}

// streamEvent is one server sent event.
type streamEvent struct {
	name string
	data string
}

// readEvents parses the server sent event stream in r. Comment lines are reported as
// heartbeats; each blank line terminates an event.
func readEvents(r io.Reader, onEvent func(streamEvent) error, onHeartbeat func()) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	var ev streamEvent
	var data []string
	flush := func() error {
		if ev.name == "" && len(data) == 0 {
			return nil
		}
		ev.data = strings.Join(data, "\n")
		err := onEvent(ev)
		ev, data = streamEvent{}, nil
		return err
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			onHeartbeat()
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// dispatch decodes one event and calls the matching listener method.
func (c *Client) dispatch(ev streamEvent, listener StreamListener) error {
	if ev.name == "delete" {
		listener.OnDelete(ID(strings.Trim(strings.TrimSpace(ev.data), `"`)))
		return nil
	}

	var payload any
	if ev.data != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(ev.data)))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			if isKnownEvent(ev.name) {
				return &pkgerrs.ParseError{Operation: "stream", Message: fmt.Sprintf("malformed %s event", ev.name), Err: err}
			}
			listener.OnUnknownEvent(ev.name, ev.data)
			return nil
		}
	}

	reg := c.parser.Registry()
	switch ev.name {
	case "update", "status.update":
		e, ok := reg.Cast(types.StatusType, payload).(*entity.Entity)
		if !ok {
			return &pkgerrs.ParseError{Operation: "stream", Message: fmt.Sprintf("%s event carries no status", ev.name)}
		}
		if ev.name == "update" {
			listener.OnUpdate(types.Status{Entity: e})
		} else {
			listener.OnStatusUpdate(types.Status{Entity: e})
		}
	case "notification":
		e, ok := reg.Cast(types.NotificationType, payload).(*entity.Entity)
		if !ok {
			return &pkgerrs.ParseError{Operation: "stream", Message: "notification event carries no notification"}
		}
		listener.OnNotification(types.Notification{Entity: e})
	case "conversation":
		e, ok := reg.Cast(types.ConversationType, payload).(*entity.Entity)
		if !ok {
			return &pkgerrs.ParseError{Operation: "stream", Message: "conversation event carries no conversation"}
		}
		listener.OnConversation(types.Conversation{Entity: e})
	default:
		listener.OnUnknownEvent(ev.name, reg.Cast(entity.Any(), payload))
	}
	return nil
}

func isKnownEvent(name string) bool {
	switch name {
	case "update", "status.update", "notification", "conversation":
		return true
	}
	return false
}

// streamClient returns a request engine for long lived streaming responses: no overall
// timeout, the current token, and the streaming host.
func (c *Client) streamClient() (*internal.Client, error) {
	hc := *c.config.HTTPClient
	hc.Timeout = 0
	base := c.config.BaseURL
	if c.config.StreamingURL != "" {
		base = c.config.StreamingURL
	}
	return internal.NewClient(internal.ClientConfig{
		HTTPClient:  &hc,
		BaseURL:     base,
		AccessToken: c.AccessToken(),
		UserAgent:   c.config.UserAgent,
		Language:    c.config.Language,
		Logger:      c.logger,
	})
}

func (c *Client) openStream(ctx context.Context, timeline StreamTimeline) (io.ReadCloser, error) {
	sc, err := c.streamClient()
	if err != nil {
		return nil, err
	}
	resp, err := sc.Open(ctx, &internal.Request{
		Method:  http.MethodGet,
		Path:    "api/v1/streaming/" + timeline.Name,
		Params:  timeline.Params,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Stream connects to timeline and delivers its events to listener until the server closes the
// stream, ctx is cancelled or an event cannot be decoded. It does not reconnect; see
// StreamAsync.
//
// Stream returns nil when the server ended the stream and ctx.Err() when ctx was cancelled.
func (c *Client) Stream(ctx context.Context, timeline StreamTimeline, listener StreamListener) error {
	if err := timeline.validate(); err != nil {
		return err
	}
	if err := c.requireVersion(ctx, "stream_"+timeline.Name, "1.1.0", ""); err != nil {
		return err
	}
	body, err := c.openStream(ctx, timeline)
	if err != nil {
		return err
	}
	defer body.Close()
	return c.consume(ctx, body, listener, nil)
}

func (c *Client) consume(ctx context.Context, body io.Reader, listener StreamListener, beat func()) error {
	err := readEvents(body,
		func(ev streamEvent) error {
			if beat != nil {
				beat()
			}
			return c.dispatch(ev, listener)
		},
		func() {
			if beat != nil {
				beat()
			}
			listener.HandleHeartbeat()
		})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// StreamOptions configures StreamAsync.
type StreamOptions struct {
	// ReconnectWait is the pause before reconnecting. Defaults to DefaultReconnectWait.
	ReconnectWait time.Duration
	// DisableReconnect ends the stream at the first failure.
	DisableReconnect bool
}

// StreamHandle controls a stream running in the background.
type StreamHandle struct {
	running      atomic.Bool
	closed       atomic.Bool
	reconnecting atomic.Bool
	lastEvent    atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	body io.Closer
	err  error
}

// IsAlive reports whether the stream worker is still running, connected or reconnecting.
func (h *StreamHandle) IsAlive() bool {
	return h.running.Load()
}

// IsReceiving reports whether the stream is connected and not waiting to reconnect.
func (h *StreamHandle) IsReceiving() bool {
	return h.running.Load() && !h.reconnecting.Load()
}

// LastEvent returns when the last event or heartbeat arrived.
func (h *StreamHandle) LastEvent() time.Time {
	ns := h.lastEvent.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Done is closed when the stream worker exited.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error that ended the stream, once Done is closed. It is nil after Close.
func (h *StreamHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Close stops the stream and waits for the worker to exit. It is safe to call more than once.
func (h *StreamHandle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.cancel()
		h.mu.Lock()
		if h.body != nil {
			h.body.Close()
		}
		h.mu.Unlock()
	}
	<-h.done
	return nil
}

func (h *StreamHandle) setBody(body io.Closer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return false
	}
	h.body = body
	return true
}

// StreamAsync runs Stream in a background goroutine. Dropped connections are reconnected
// after opts.ReconnectWait; authorization and not found errors end the stream, as retrying
// cannot fix them. Call Close on the returned handle to stop it.
func (c *Client) StreamAsync(ctx context.Context, timeline StreamTimeline, listener StreamListener, opts *StreamOptions) (*StreamHandle, error) {
	if err := timeline.validate(); err != nil {
		return nil, err
	}
	if err := c.requireVersion(ctx, "stream_"+timeline.Name, "1.1.0", ""); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &StreamOptions{}
	}
	wait := opts.ReconnectWait
	if wait <= 0 {
		wait = DefaultReconnectWait
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &StreamHandle{cancel: cancel, done: make(chan struct{})}
	h.running.Store(true)

	go func() {
		defer close(h.done)
		defer h.running.Store(false)
		defer cancel()

		for {
			err := c.streamOnce(ctx, h, timeline, listener)
			if h.closed.Load() || ctx.Err() != nil {
				return
			}
			if err != nil {
				listener.OnAbort(err)
			}
			if opts.DisableReconnect || permanent(err) {
				h.mu.Lock()
				h.err = err
				h.mu.Unlock()
				return
			}

			h.reconnecting.Store(true)
			c.logger.WarnContext(ctx, "stream dropped, reconnecting", "stream", timeline.Name, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
	return h, nil
}

func (c *Client) streamOnce(ctx context.Context, h *StreamHandle, timeline StreamTimeline, listener StreamListener) error {
	body, err := c.openStream(ctx, timeline)
	if err != nil {
		return err
	}
	defer body.Close()
	if !h.setBody(body) {
		return nil
	}
	h.reconnecting.Store(false)
	h.lastEvent.Store(time.Now().UnixNano())

	err = c.consume(ctx, body, listener, func() { h.lastEvent.Store(time.Now().UnixNano()) })
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func permanent(err error) bool {
	if err == nil {
		return false
	}
	var argErr *pkgerrs.IllegalArgumentError
	if errors.As(err, &argErr) {
		return true
	}
	return pkgerrs.IsUnauthorized(err) || pkgerrs.IsNotFound(err)
}
