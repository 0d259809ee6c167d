package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies engine errors for routing and user display.
type Kind string

const (
	KindAuth             Kind = "auth"
	KindPermission       Kind = "permission"
	KindNotFound         Kind = "not_found"
	KindInvalidRequest   Kind = "invalid_request"
	KindRateLimited      Kind = "rate_limited"
	KindServerError      Kind = "server_error"
	KindCancelled        Kind = "cancelled"
	KindTimeout          Kind = "timeout"
	KindParseError       Kind = "parse_error"
	KindToolError        Kind = "tool_error"
	KindAgentUnavailable Kind = "agent_unavailable"
)

// TransientError represents an error that can be retried.
type TransientError struct {
	Err        error
	Kind       Kind
	StatusCode int // HTTP status code if applicable
	RetryAfter int // Seconds to wait before retry (from Retry-After header)
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error (%s): %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError represents an error that must not be retried.
type PermanentError struct {
	Err        error
	Kind       Kind
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as retryable with the given kind.
func Transient(kind Kind, err error) *TransientError {
	return &TransientError{Err: err, Kind: kind}
}

// Permanent wraps err as non-retryable with the given kind.
func Permanent(kind Kind, err error) *PermanentError {
	return &PermanentError{Err: err, Kind: kind}
}

// FromHTTPStatus maps an HTTP status code to the engine error taxonomy.
// retryAfter is the parsed Retry-After header in seconds, 0 when absent.
func FromHTTPStatus(status int, body string, retryAfter int) error {
	base := fmt.Errorf("HTTP %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized:
		return &PermanentError{Err: base, Kind: KindAuth, StatusCode: status}
	case status == http.StatusForbidden:
		return &PermanentError{Err: base, Kind: KindPermission, StatusCode: status}
	case status == http.StatusNotFound:
		return &PermanentError{Err: base, Kind: KindNotFound, StatusCode: status}
	case status == http.StatusUnprocessableEntity:
		return &PermanentError{Err: base, Kind: KindInvalidRequest, StatusCode: status}
	case status == http.StatusTooManyRequests:
		return &TransientError{Err: base, Kind: KindRateLimited, StatusCode: status, RetryAfter: retryAfter}
	case status >= 500:
		return &TransientError{Err: base, Kind: KindServerError, StatusCode: status}
	default:
		return &PermanentError{Err: base, Kind: KindInvalidRequest, StatusCode: status}
	}
}

// KindOf extracts the Kind from an error, defaulting to KindServerError for
// unclassified errors and KindCancelled for context cancellation.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return transient.Kind
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return permanent.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindServerError
}

// IsTransient reports whether an error is retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return isNetworkError(err)
}

// RetryAfterSeconds returns the server-suggested wait for rate-limited
// errors, 0 when none applies.
func RetryAfterSeconds(err error) int {
	var transient *TransientError
	if errors.As(err, &transient) {
		return transient.RetryAfter
	}
	return 0
}

// IsCancelled reports whether err stems from caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || KindOf(err) == KindCancelled
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
