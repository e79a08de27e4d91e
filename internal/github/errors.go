// Package github is a small client for the GitHub REST API covering what a
// bookmark document needs: reading and committing one file through the
// repository contents endpoints, with retry and error classification.
package github

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, github.ErrNotFound) to check.
var (
	ErrBadRequest    = errors.New("github: bad request")
	ErrUnauthorized  = errors.New("github: unauthorized")
	ErrForbidden     = errors.New("github: forbidden")
	ErrNotFound      = errors.New("github: not found")
	ErrConflict      = errors.New("github: conflict")
	ErrUnprocessable = errors.New("github: unprocessable entity")
	ErrThrottled     = errors.New("github: rate limited")
	ErrServerError   = errors.New("github: server error")
)

// ErrIncompleteTarget is returned when a Target lacks a token, owner, repo
// or path.
var ErrIncompleteTarget = errors.New("github: connection is not configured")

// APIError wraps a sentinel error with HTTP status code, request ID,
// and the API error message body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("github: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isRateLimited reports whether a 403 response is GitHub's primary rate
// limit rather than a permission problem.
func isRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}
