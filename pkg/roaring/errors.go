package roaring

import "fmt"

// AuthError reports a failed token exchange: the endpoint was unreachable,
// rejected the credentials, or returned a body without the required fields.
type AuthError struct {
	StatusCode int    // HTTP status, 0 if no response was received
	Message    string
	Body       string // truncated response body for non-2xx replies
	Cause      error
}

func (e *AuthError) Error() string {
	msg := "roaring: authentication failed: " + e.Message
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// LookupError reports a failed lookup call made with a valid token.
type LookupError struct {
	StatusCode     int // HTTP status, 0 if no response was received
	PersonalNumber string
	Message        string
	Body           string
	Cause          error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("roaring: lookup failed: %s", e.Message)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}
