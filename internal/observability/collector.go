// Package observability provides metrics collection and tracing for CLI operations.
package observability

import (
	"sync"
	"time"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	StatusCode int
	Duration   time.Duration
	Error      error
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	FailedRequests  int
	TokenRefreshes  int
	FailedRefreshes int
	TotalLatency    time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	tokenRefreshes  int
	failedRefreshes int
	totalLatency    time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordRequest records metrics for an HTTP request. Transport errors and
// non-2xx statuses both count as failed.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Error != nil || m.StatusCode < 200 || m.StatusCode >= 300 {
		c.failedRequests++
	}
}

// RecordRequestFromClient records metrics from client hook types.
func (c *SessionCollector) RecordRequestFromClient(info roaring.RequestInfo, result roaring.RequestResult) {
	c.RecordRequest(RequestMetrics{
		Method:     info.Method,
		URL:        info.URL,
		StatusCode: result.StatusCode,
		Duration:   result.Duration,
		Error:      result.Error,
	})
}

// RecordTokenRefresh records a token exchange.
func (c *SessionCollector) RecordTokenRefresh(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenRefreshes++
	if err != nil {
		c.failedRefreshes++
	}
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		TokenRefreshes:  c.tokenRefreshes,
		FailedRefreshes: c.failedRefreshes,
		TotalLatency:    c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.tokenRefreshes = 0
	c.failedRefreshes = 0
	c.totalLatency = 0
}

// Map renders the summary as the "stats" entry of a response's meta block.
func (m SessionMetrics) Map() map[string]any {
	return map[string]any{
		"requests":         m.TotalRequests,
		"failed_requests":  m.FailedRequests,
		"token_refreshes":  m.TokenRefreshes,
		"failed_refreshes": m.FailedRefreshes,
		"latency_ms":       m.TotalLatency.Milliseconds(),
		"elapsed_ms":       m.EndTime.Sub(m.StartTime).Milliseconds(),
	}
}
