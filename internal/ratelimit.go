package internal

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// RateLimitMethod selects how the client reacts to the server's rate limit.
type RateLimitMethod string

const (
	// RateLimitThrow fails with a RateLimitError as soon as the server answers 429.
	RateLimitThrow RateLimitMethod = "throw"
	// RateLimitWait sleeps until the window resets when the server answers 429, then retries.
	RateLimitWait RateLimitMethod = "wait"
	// RateLimitPace spreads requests evenly over the window and otherwise behaves like wait.
	RateLimitPace RateLimitMethod = "pace"
)

const (
	// DefaultPaceFactor makes paced requests slightly faster than the ideal spacing.
	DefaultPaceFactor = 1.1
	// DefaultMaxSleep bounds every single rate limit sleep.
	DefaultMaxSleep = 300 * time.Second
	// DefaultRateLimit is Mastodon's default per-window request budget.
	DefaultRateLimit = 300
)

// RateLimitWindow is the client's view of the server's current rate limit window.
type RateLimitWindow struct {
	Limit     int
	Remaining int
	Reset     time.Time
	LastCall  time.Time
}

func newRateLimitWindow(now time.Time) RateLimitWindow {
	return RateLimitWindow{
		Limit:     DefaultRateLimit,
		Remaining: DefaultRateLimit,
		Reset:     now,
		LastCall:  now,
	}
}

// paceDelay returns how long to sleep before the next request so the remaining budget lasts
// until the window resets. The result never exceeds maxSleep.
func (w RateLimitWindow) paceDelay(now time.Time, factor float64, maxSleep time.Duration) time.Duration {
	var d time.Duration
	if w.Remaining <= 0 {
		d = w.Reset.Sub(now)
	} else {
		spacing := w.Reset.Sub(now) / time.Duration(w.Remaining)
		remaining := spacing - now.Sub(w.LastCall)
		if remaining <= 0 {
			return 0
		}
		if factor <= 0 {
			factor = DefaultPaceFactor
		}
		d = time.Duration(float64(remaining) / factor)
	}
	return clampSleep(d, maxSleep)
}

// resetDelay is how long a 429 waits for the window to reset. A reset in the past yields 0.
func (w RateLimitWindow) resetDelay(now time.Time, maxSleep time.Duration) time.Duration {
	return clampSleep(w.Reset.Sub(now), maxSleep)
}

func clampSleep(d, maxSleep time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if maxSleep > 0 && d > maxSleep {
		return maxSleep
	}
	return d
}

// update applies the X-RateLimit-* headers of a response. It reports whether the window
// changed. The reset time is shifted by the difference between the local clock and the
// server's Date header.
func (w *RateLimitWindow) update(h http.Header, now time.Time) bool {
	remainingHeader := h.Get("X-RateLimit-Remaining")
	if remainingHeader == "" {
		return false
	}
	remaining, err := strconv.Atoi(strings.TrimSpace(remainingHeader))
	if err != nil {
		return false
	}
	w.Remaining = remaining
	if limit, err := strconv.Atoi(strings.TrimSpace(h.Get("X-RateLimit-Limit"))); err == nil {
		w.Limit = limit
	}
	if reset, ok := parseReset(h.Get("X-RateLimit-Reset")); ok {
		if date, err := http.ParseTime(h.Get("Date")); err == nil {
			reset = reset.Add(now.Sub(date))
		}
		w.Reset = reset
	}
	return true
}

// parseReset accepts an ISO 8601 timestamp (Mastodon) or integer epoch seconds (GoToSocial
// and older servers).
func parseReset(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(n)
		return time.Unix(sec, int64((n-float64(sec))*float64(time.Second))).UTC(), true
	}
	t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
