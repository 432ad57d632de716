package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

// sensitiveParams are query parameter names scrubbed from trace output.
// Personal numbers are PII and never appear in traces.
var sensitiveParams = map[string]bool{
	"personalnumber": true,
	"access_token":   true,
	"token":          true,
	"client_secret":  true,
	"secret":         true,
	"password":       true,
}

// TraceWriter outputs human-readable trace information to stderr.
// It formats output with timestamps relative to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a new TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo creates a new TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

func (t *TraceWriter) elapsed() float64 {
	return time.Since(t.startTime).Seconds()
}

// WriteRequestStart writes a request start trace line.
// Format: [0.234s]   -> GET /person/1.0/person?personalNumber=%5BREDACTED%5D
func (t *TraceWriter) WriteRequestStart(info roaring.RequestInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[%.3fs]   -> %s %s\n", t.elapsed(), info.Method, scrubURL(info.URL))
}

// WriteRequestEnd writes a request completion trace line.
// Format: [0.234s]   <- 200 (45ms)
func (t *TraceWriter) WriteRequestEnd(_ roaring.RequestInfo, result roaring.RequestResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if result.Error != nil {
		fmt.Fprintf(t.writer, "[%.3fs]   <- ERROR: %v\n", t.elapsed(), result.Error)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs]   <- %d (%dms)\n", t.elapsed(), result.StatusCode, result.Duration.Milliseconds())
}

// WriteTokenRefresh writes a token refresh trace line.
// Format: [0.234s] Token refreshed, expires 2026-01-15T10:00:00Z
func (t *TraceWriter) WriteTokenRefresh(expiresAt time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		fmt.Fprintf(t.writer, "[%.3fs] Token refresh failed: %v\n", t.elapsed(), err)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs] Token refreshed, expires %s\n", t.elapsed(), expiresAt.UTC().Format(time.RFC3339))
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubURL redacts sensitive query parameters from a URL for safe logging.
// Returns a safe placeholder if the URL cannot be parsed.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}

	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
