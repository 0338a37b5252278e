// Package apperr defines the outcome taxonomy shared by every engine.
//
// Business-rule failures carry a user-facing message. Internal failures wrap
// the underlying store error, which is logged at the HTTP boundary and never
// shown to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindLimitExceeded
	KindForbidden
	KindNotFound
	KindConflict
	KindWindowClosed
	KindRateLimited
	KindUnauthorized
)

// String returns the stable machine-readable code used in JSON responses.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindWindowClosed:
		return "window_closed"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a Kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindLimitExceeded:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindWindowClosed:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Public returns the text that may cross the trust boundary.
func (e *Error) Public() string {
	if e.Kind == KindInternal {
		return "Internal server error"
	}
	return e.Message
}

func newf(k Kind, format string, args ...any) *Error {
	if len(args) == 0 {
		return &Error{Kind: k, Message: format}
	}
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func LimitExceeded(format string, args ...any) *Error {
	return newf(KindLimitExceeded, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func WindowClosed(format string, args ...any) *Error {
	return newf(KindWindowClosed, format, args...)
}

func RateLimited(format string, args ...any) *Error {
	return newf(KindRateLimited, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Internal wraps an infrastructure failure. op names the step that failed
// ("find group", "insert letter") and appears only in logs.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf classifies err. Unclassified non-nil errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// As extracts the classified error, wrapping unclassified ones as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unclassified", err)
}
