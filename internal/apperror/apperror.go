package apperror

import (
	"errors"
	"fmt"
	"time"
)

// Extraction-time error kinds. These classify why a page fetch failed so the
// extractor can decide what to do: rate-limit errors are waited out and
// retried once, everything else aborts the run.
var (
	ErrTransport = errors.New("transport error")
	ErrAuth      = errors.New("authentication rejected")
	ErrRateLimit = errors.New("rate limit exhausted")
	ErrDecode    = errors.New("decode error")
)

// Query-time error kinds. Each maps to a fixed HTTP status in the handler
// layer. Unauthenticated and NotFound are deliberately distinct so clients
// can tell "bad credentials" from "no such record".
var (
	ErrNotFound        = errors.New("not found")
	ErrQueryTooShort   = errors.New("query too short")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // actual error kind (one of the sentinels above)
	Message string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// RateLimitError carries the quota reset time so the extractor knows how
// long to wait before retrying the same page.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exhausted, resets at %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimit
}

// Transport wraps err as a transport failure. The cause stays on the chain,
// so a context cancellation that surfaces as a failed request is still
// detectable with errors.Is(err, context.Canceled).
func Transport(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}

func Auth(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

// Decode wraps err as a decode failure, keeping the cause on the chain.
func Decode(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrDecode, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, key),
	}
}

// QueryTooShort returns an AppError for a search term under the minimum
// length. HTTP handlers map this to 400 Bad Request.
func QueryTooShort(minLen int) *AppError {
	return &AppError{
		Err:     ErrQueryTooShort,
		Message: fmt.Sprintf("search term must be at least %d characters", minLen),
	}
}

// Unauthenticated returns an AppError indicating the caller failed the
// access gate. HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
