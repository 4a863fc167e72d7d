// Package errors defines the error taxonomy of the Mastodon API wrapper.
//
// Every failure of the request engine is one of NetworkError, RateLimitError, APIError,
// VersionError or IllegalArgumentError. APIError carries a Kind sentinel so callers can branch
// with errors.Is:
//
//	if errors.Is(err, pkgerrs.ErrNotFound) { ... }
//	if errors.Is(err, pkgerrs.ErrServerError) { ... } // any 5xx
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// joinParts joins error message parts with the specified separator.
func joinParts(parts []string, sep string) string {
	return strings.Join(parts, sep)
}

// Kind sentinels of APIError.
var (
	// ErrAPI matches every APIError.
	ErrAPI = stderrors.New("mastodon API error")
	// ErrNotFound is HTTP 404.
	ErrNotFound = stderrors.New("not found")
	// ErrUnauthorized is HTTP 401.
	ErrUnauthorized = stderrors.New("unauthorized")
	// ErrServerError matches every 5xx response.
	ErrServerError = stderrors.New("server error")
	// ErrInternalServerError is HTTP 500.
	ErrInternalServerError = stderrors.New("internal server error")
	// ErrBadGateway is HTTP 502.
	ErrBadGateway = stderrors.New("bad gateway")
	// ErrServiceUnavailable is HTTP 503.
	ErrServiceUnavailable = stderrors.New("service unavailable")
	// ErrGatewayTimeout is HTTP 504.
	ErrGatewayTimeout = stderrors.New("gateway timeout")
)

// KindForStatus maps an HTTP status code to its APIError kind.
func KindForStatus(code int) error {
	switch {
	case code == 404:
		return ErrNotFound
	case code == 401:
		return ErrUnauthorized
	case code == 500:
		return ErrInternalServerError
	case code == 502:
		return ErrBadGateway
	case code == 503:
		return ErrServiceUnavailable
	case code == 504:
		return ErrGatewayTimeout
	case code >= 500 && code < 600:
		return ErrServerError
	default:
		return ErrAPI
	}
}

func isServerKind(kind error) bool {
	switch kind {
	case ErrServerError, ErrInternalServerError, ErrBadGateway, ErrServiceUnavailable, ErrGatewayTimeout:
		return true
	}
	return false
}

// APIError represents an error response from a Mastodon server, or a response body that
// could not be decoded.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Reason is the HTTP reason phrase
	Reason string
	// Message is the server supplied error text, from {"error": "..."} or a bare JSON string
	Message string
	// Body holds the raw response body
	Body string
	// Kind is one of the sentinel errors of this package
	Kind error
	// Err is the decode error for malformed responses
	Err error
}

func (e *APIError) Error() string {
	var parts []string
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.StatusCode))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" && e.Body != "" {
		msg = fmt.Sprintf("body: %q", truncate(e.Body, 200))
	}
	head := "mastodon API error"
	if len(parts) > 0 {
		head += " (" + joinParts(parts, ", ") + ")"
	}
	if msg == "" {
		return head
	}
	return head + ": " + msg
}

// Is matches the kind sentinel, ErrServerError for every 5xx kind and ErrAPI for all.
func (e *APIError) Is(target error) bool {
	kind := e.Kind
	if kind == nil {
		kind = KindForStatus(e.StatusCode)
	}
	switch target {
	case ErrAPI:
		return true
	case ErrServerError:
		return isServerKind(kind)
	}
	return target == kind
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NetworkError indicates the request never produced an HTTP response: DNS, connection and
// timeout failures.
type NetworkError struct {
	// Method and URL of the failed request
	Method string
	URL    string
	// Err contains the transport error
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("network error during %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates the server rejected the request with HTTP 429 and the configured
// policy does not wait, or the rate limit window could not be waited out.
type RateLimitError struct {
	// Reset is when the server's window resets, if known
	Reset time.Time
	// Message contains the detailed error message
	Message string
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "hit rate limit"
	}
	if !e.Reset.IsZero() {
		return fmt.Sprintf("rate limit error: %s (resets at %s)", msg, e.Reset.UTC().Format(time.RFC3339))
	}
	return "rate limit error: " + msg
}

// VersionError indicates the endpoint requires a newer server than the one connected to.
type VersionError struct {
	// Endpoint is the name of the wrapped endpoint
	Endpoint string
	// Required is the minimum server version
	Required string
	// Actual is the detected server version
	Actual string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("version error: %s requires Mastodon %s, server is %s", e.Endpoint, e.Required, e.Actual)
}

// IllegalArgumentError indicates an invalid parameter, detected before any request was sent.
type IllegalArgumentError struct {
	// Field is the offending parameter
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *IllegalArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("illegal argument %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("illegal argument: %s", e.Message)
}

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates a failed OAuth exchange.
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	var parts []string
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", truncate(e.Body, 200)))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}
	if len(parts) == 0 {
		return "auth error"
	}
	return "auth error: " + joinParts(parts, ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StateError indicates an operation was attempted in the wrong state, for example on a closed
// stream.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}

// ParseError indicates a persisted value or stream payload could not be parsed.
type ParseError struct {
	// Operation is the name of the operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError for HTTP 404.
func IsNotFound(err error) bool { return stderrors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err is an APIError for HTTP 401.
func IsUnauthorized(err error) bool { return stderrors.Is(err, ErrUnauthorized) }

// IsServerError reports whether err is an APIError for any 5xx status.
func IsServerError(err error) bool { return stderrors.Is(err, ErrServerError) }

// IsRateLimited reports whether err is a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return stderrors.As(err, &rl)
}
