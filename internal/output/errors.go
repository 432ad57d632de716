package output

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

const loginHint = "Run: roaring auth login"

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, identifier),
		HTTPStatus: http.StatusNotFound,
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    loginHint,
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

func ErrRateLimit() *Error {
	return &Error{
		Code:       CodeRateLimit,
		Message:    "Rate limited",
		Hint:       "Try again later",
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

func ErrNetwork(cause error) *Error {
	// The request URL can carry a personal number in its query; keep it out
	// of the hint.
	hint := cause.Error()
	var urlErr *url.Error
	if errors.As(cause, &urlErr) && urlErr.Err != nil {
		hint = urlErr.Err.Error()
	}
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      hint,
		Retryable: true,
		Cause:     cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

// AsError converts an error to an *Error. Client errors from the roaring
// package are classified by HTTP status; anything else becomes an API error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var authErr *roaring.AuthError
	if errors.As(err, &authErr) {
		return fromAuthError(authErr)
	}

	var lookupErr *roaring.LookupError
	if errors.As(err, &lookupErr) {
		return fromLookupError(lookupErr)
	}

	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

func fromAuthError(err *roaring.AuthError) *Error {
	if err.StatusCode == 0 && err.Cause != nil {
		e := ErrNetwork(err.Cause)
		e.Message = "Could not reach the token endpoint"
		e.Cause = err
		return e
	}
	return &Error{
		Code:       CodeAuth,
		Message:    "Authentication failed: " + err.Message,
		Hint:       "Check the client ID and secret. " + loginHint,
		HTTPStatus: err.StatusCode,
		Cause:      err,
	}
}

func fromLookupError(err *roaring.LookupError) *Error {
	var e *Error
	switch {
	case err.StatusCode == 0 && err.Cause != nil:
		e = ErrNetwork(err.Cause)
	case err.StatusCode == http.StatusNotFound:
		// The personal number is PII; keep it out of the message.
		e = &Error{Code: CodeNotFound, Message: "Person not found", HTTPStatus: err.StatusCode}
	case err.StatusCode == http.StatusUnauthorized:
		e = ErrAuth("Access token rejected")
		e.HTTPStatus = err.StatusCode
	case err.StatusCode == http.StatusForbidden:
		e = ErrForbidden("Access denied for person lookup")
	case err.StatusCode == http.StatusTooManyRequests:
		e = ErrRateLimit()
	default:
		e = ErrAPI(err.StatusCode, "Lookup failed: "+err.Message)
	}
	e.Cause = err
	return e
}
