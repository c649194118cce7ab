package serp

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingAPIKey means no key was passed in Config and SERP_API_KEY
	// is unset.
	ErrMissingAPIKey = errors.New("api key not provided")
	// ErrInvalidParameter marks query or configuration values rejected
	// before any request is made.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrRequestFailed wraps transport-level failures (DNS, connect,
	// timeout). These are retried.
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidResponse marks a 2xx body that did not parse. Never retried.
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrRateLimited matches *RateLimitError via errors.Is.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrQuotaExceeded means the local search quota window is exhausted.
	// The request was not sent.
	ErrQuotaExceeded = errors.New("search quota exhausted")
)

// RateLimitError is a 429 from the API. RetryAfter is the server-requested
// wait, defaulting to 60s when the Retry-After header is absent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// APIError is a non-2xx, non-429 response. Message holds the raw error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.StatusCode, e.Message)
}

// IsServerError reports whether the status is 5xx. Server errors are
// retried, other API errors are returned immediately.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
