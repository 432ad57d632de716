package observability

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

var (
	lookupInfo   = roaring.RequestInfo{Method: "GET", URL: "https://api.roaring.io/person/1.0/person?personalNumber=197001011234"}
	lookupResult = roaring.RequestResult{StatusCode: 200, Duration: 45 * time.Millisecond}
)

func TestCLIHooks_SetLevel(t *testing.T) {
	h := NewCLIHooks(0, nil, nil)

	assert.Equal(t, 0, h.Level())

	h.SetLevel(2)
	assert.Equal(t, 2, h.Level())
}

func TestCLIHooks_Level0_Silent(t *testing.T) {
	var buf bytes.Buffer
	collector := NewSessionCollector()
	h := NewCLIHooks(0, collector, NewTraceWriterTo(&buf))

	ctx := h.OnRequestStart(context.Background(), lookupInfo)
	h.OnRequestEnd(ctx, lookupInfo, lookupResult)
	h.OnTokenRefresh(ctx, time.Now().Add(time.Hour), nil)

	assert.Equal(t, 0, buf.Len(), "expected no output at level 0")

	summary := collector.Summary()
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, 1, summary.TokenRefreshes)
}

func TestCLIHooks_Level1_RefreshesOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(1, nil, NewTraceWriterTo(&buf))

	ctx := h.OnRequestStart(context.Background(), lookupInfo)
	h.OnRequestEnd(ctx, lookupInfo, lookupResult)
	h.OnTokenRefresh(ctx, time.Now().Add(time.Hour), nil)

	output := buf.String()
	assert.Contains(t, output, "Token refreshed")
	assert.NotContains(t, output, "GET", "unexpected request output at level 1")
}

func TestCLIHooks_Level2_RefreshesAndRequests(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(2, nil, NewTraceWriterTo(&buf))

	ctx := h.OnRequestStart(context.Background(), lookupInfo)
	h.OnRequestEnd(ctx, lookupInfo, lookupResult)
	h.OnTokenRefresh(ctx, time.Time{}, errors.New("HTTP 401"))

	output := buf.String()
	assert.Contains(t, output, "-> GET")
	assert.Contains(t, output, "<- 200 (45ms)")
	assert.Contains(t, output, "Token refresh failed: HTTP 401")
	assert.NotContains(t, output, "197001011234", "personal number leaked into trace")
}

func TestCLIHooks_NilCollectorAndWriter(t *testing.T) {
	h := NewCLIHooks(2, nil, nil)

	assert.NotPanics(t, func() {
		ctx := h.OnRequestStart(context.Background(), lookupInfo)
		h.OnRequestEnd(ctx, lookupInfo, lookupResult)
		h.OnTokenRefresh(ctx, time.Time{}, nil)
	})
}

func TestCLIHooks_ConcurrentUse(t *testing.T) {
	collector := NewSessionCollector()
	h := NewCLIHooks(0, collector, nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := h.OnRequestStart(context.Background(), lookupInfo)
			h.OnRequestEnd(ctx, lookupInfo, lookupResult)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, collector.Summary().TotalRequests)
}
