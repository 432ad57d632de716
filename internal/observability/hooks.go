package observability

import (
	"context"
	"sync"
	"time"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

// Verify CLIHooks implements roaring.Hooks at compile time.
var _ roaring.Hooks = (*CLIHooks)(nil)

// CLIHooks implements roaring.Hooks for CLI observability.
// It supports configurable verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: Token refreshes only
//   - 2: Token refreshes and HTTP requests
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnRequestStart is called before an HTTP request is sent.
func (h *CLIHooks) OnRequestStart(ctx context.Context, info roaring.RequestInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 2 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

// OnRequestEnd is called after an HTTP request completes.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info roaring.RequestInfo, result roaring.RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequestFromClient(info, result)
	}
	if level >= 2 && writer != nil {
		writer.WriteRequestEnd(info, result)
	}
}

// OnTokenRefresh is called after every token exchange.
func (h *CLIHooks) OnTokenRefresh(_ context.Context, expiresAt time.Time, err error) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordTokenRefresh(err)
	}
	if level >= 1 && writer != nil {
		writer.WriteTokenRefresh(expiresAt, err)
	}
}
