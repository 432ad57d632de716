package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

func TestTraceWriter_WriteRequestStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestStart(roaring.RequestInfo{Method: "POST", URL: "https://api.roaring.io/token"})

	output := buf.String()
	if !strings.Contains(output, "-> POST https://api.roaring.io/token") {
		t.Errorf("expected request line, got: %s", output)
	}
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestEnd(roaring.RequestInfo{}, roaring.RequestResult{StatusCode: 404, Duration: 12 * time.Millisecond})

	if output := buf.String(); !strings.Contains(output, "<- 404 (12ms)") {
		t.Errorf("expected status and duration, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestEnd(roaring.RequestInfo{}, roaring.RequestResult{Error: errors.New("connection refused")})

	if output := buf.String(); !strings.Contains(output, "<- ERROR: connection refused") {
		t.Errorf("expected error line, got: %s", output)
	}
}

func TestTraceWriter_WriteTokenRefresh(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	expires := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	w.WriteTokenRefresh(expires, nil)

	if output := buf.String(); !strings.Contains(output, "Token refreshed, expires 2026-01-15T10:00:00Z") {
		t.Errorf("expected refresh line, got: %s", output)
	}
}

func TestScrubURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
		absent   string
	}{
		{
			name:     "personal number",
			in:       "https://api.roaring.io/person/1.0/person?personalNumber=197001011234",
			contains: "personalNumber=%5BREDACTED%5D",
			absent:   "197001011234",
		},
		{
			name:     "client secret",
			in:       "https://example.com/token?client_secret=hunter2",
			contains: "REDACTED",
			absent:   "hunter2",
		},
		{
			name:     "no sensitive params",
			in:       "https://api.roaring.io/token",
			contains: "https://api.roaring.io/token",
		},
		{
			name:     "unparseable",
			in:       "://bad url",
			contains: "[unparseable URL]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scrubURL(tt.in)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("scrubURL(%q) = %q, want it to contain %q", tt.in, got, tt.contains)
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("scrubURL(%q) = %q, leaked %q", tt.in, got, tt.absent)
			}
		})
	}
}
