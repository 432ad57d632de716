package roaring

import (
	"context"
	"time"
)

// RequestInfo describes an outgoing HTTP request.
type RequestInfo struct {
	Method string
	URL    string
}

// RequestResult describes the outcome of an HTTP request.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Hooks receives observability callbacks from a Client.
// Implementations must be safe for concurrent use.
type Hooks interface {
	// OnRequestStart is called before an HTTP request is sent.
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context

	// OnRequestEnd is called after an HTTP request completes or fails.
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)

	// OnTokenRefresh is called after every token exchange. expiresAt is zero
	// when err is non-nil.
	OnTokenRefresh(ctx context.Context, expiresAt time.Time, err error)
}

// NoopHooks implements Hooks with no-ops.
type NoopHooks struct{}

func (NoopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context { return ctx }
func (NoopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult) {}
func (NoopHooks) OnTokenRefresh(context.Context, time.Time, error) {}
