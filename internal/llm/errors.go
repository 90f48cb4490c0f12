package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrRateLimited is matched by errors.Is for HTTP 429 responses.
var ErrRateLimited = errors.New("rate limited")

// ErrEmptyResponse means the provider answered 200 with no usable text.
var ErrEmptyResponse = errors.New("empty response")

// RetryableError indicates a transient upstream failure that can be retried.
type RetryableError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration // from the Retry-After header, 0 if absent
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// StatusError is a permanent non-2xx response.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// classifyStatus maps an HTTP response status to nil, *RetryableError or
// *StatusError.
func classifyStatus(provider string, resp *http.Response, body []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return &RetryableError{
			Provider:   provider,
			StatusCode: code,
			Message:    string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return &StatusError{Provider: provider, StatusCode: code, Message: string(body)}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
