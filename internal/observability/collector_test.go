package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

func TestSessionCollector_RecordRequest(t *testing.T) {
	c := NewSessionCollector()

	c.RecordRequest(RequestMetrics{Method: "POST", StatusCode: 200, Duration: 20 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", StatusCode: 404, Duration: 30 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", Error: errors.New("timeout")})

	s := c.Summary()
	assert.Equal(t, 3, s.TotalRequests)
	assert.Equal(t, 2, s.FailedRequests)
	assert.Equal(t, 50*time.Millisecond, s.TotalLatency)
}

func TestSessionCollector_RecordRequestFromClient(t *testing.T) {
	c := NewSessionCollector()

	c.RecordRequestFromClient(
		roaring.RequestInfo{Method: "GET", URL: "/person/1.0/person"},
		roaring.RequestResult{StatusCode: 200, Duration: 10 * time.Millisecond},
	)

	s := c.Summary()
	assert.Equal(t, 1, s.TotalRequests)
	assert.Equal(t, 0, s.FailedRequests)
}

func TestSessionCollector_RecordTokenRefresh(t *testing.T) {
	c := NewSessionCollector()

	c.RecordTokenRefresh(nil)
	c.RecordTokenRefresh(errors.New("HTTP 401"))

	s := c.Summary()
	assert.Equal(t, 2, s.TokenRefreshes)
	assert.Equal(t, 1, s.FailedRefreshes)
}

func TestSessionCollector_Reset(t *testing.T) {
	c := NewSessionCollector()
	c.RecordRequest(RequestMetrics{StatusCode: 200})
	c.RecordTokenRefresh(nil)

	c.Reset()

	s := c.Summary()
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.TokenRefreshes)
	assert.Zero(t, s.TotalLatency)
}

func TestSessionMetrics_Map(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := SessionMetrics{
		StartTime:      start,
		EndTime:        start.Add(1500 * time.Millisecond),
		TotalRequests:  2,
		TokenRefreshes: 1,
		TotalLatency:   300 * time.Millisecond,
	}

	got := m.Map()
	assert.Equal(t, 2, got["requests"])
	assert.Equal(t, 1, got["token_refreshes"])
	assert.Equal(t, int64(300), got["latency_ms"])
	assert.Equal(t, int64(1500), got["elapsed_ms"])
}
