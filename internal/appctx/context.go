// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/davidfant/roaring-api/internal/auth"
	"github.com/davidfant/roaring-api/internal/config"
	"github.com/davidfant/roaring-api/internal/observability"
	"github.com/davidfant/roaring-api/internal/output"
	"github.com/davidfant/roaring-api/internal/version"
	"github.com/davidfant/roaring-api/pkg/roaring"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	Output *output.Writer
	Logger *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Flags holds the global flag values
	Flags GlobalFlags

	// Stdout and Stderr default to the process streams; tests replace them
	// before calling ApplyFlags.
	Stdout io.Writer
	Stderr io.Writer

	logLevel *slog.LevelVar
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	Quiet  bool
	YAML   bool
	Styled bool // Force ANSI styled output (even when piped)
	JQ     string

	// Context flags
	BaseURL string
	Profile string

	// Behavior flags
	Verbose int // 0=off, 1=token refreshes, 2=refreshes+requests (stacks with -v -v or -vv)
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	// Collector always runs to gather stats; hooks control output verbosity.
	// ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	traceWriter := observability.NewTraceWriter()
	hooks := observability.NewCLIHooks(0, collector, traceWriter)

	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	authMgr := auth.NewManager(cfg, httpClient,
		roaring.WithHooks(hooks),
		roaring.WithLogger(logger),
		roaring.WithUserAgent(version.UserAgent()),
	)

	app := &App{
		Config:    cfg,
		Auth:      authMgr,
		Logger:    logger,
		Collector: collector,
		Hooks:     hooks,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		logLevel:  logLevel,
	}
	app.Output = output.New(app.outputOptions(app.configFormat()))
	return app
}

func (a *App) configFormat() output.Format {
	if a.Config == nil {
		return output.FormatAuto
	}
	format, err := output.ParseFormat(a.Config.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using auto\n", err)
		return output.FormatAuto
	}
	return format
}

func (a *App) outputOptions(format output.Format) output.Options {
	locale := output.DetectLocale()
	if a.Config != nil && a.Config.Locale != "" {
		locale = output.NewLocale(a.Config.Locale)
	}
	return output.Options{
		Format: format,
		Writer: a.Stdout,
		JQ:     a.Flags.JQ,
		Locale: locale,
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	format := a.configFormat()
	switch {
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(a.outputOptions(format))

	if !a.Flags.Stats && a.Config != nil && a.Config.Stats != nil {
		a.Flags.Stats = *a.Config.Stats
	}

	a.Hooks.SetLevel(a.verboseLevel())
	if a.verboseLevel() > 0 {
		a.logLevel.Set(slog.LevelDebug)
	}
}

// verboseLevel merges -v flags, the config preference and ROARING_DEBUG,
// taking the highest.
func (a *App) verboseLevel() int {
	level := a.Flags.Verbose
	if a.Config != nil && a.Config.Verbose != nil && *a.Config.Verbose > level {
		level = *a.Config.Verbose
	}
	if debugEnv := os.Getenv("ROARING_DEBUG"); debugEnv != "" {
		if n, err := strconv.Atoi(debugEnv); err == nil {
			if n > level {
				level = n
			}
		} else if debugEnv == "true" {
			level = 2
		}
	}
	return level
}

// Client creates an authenticated roaring client for the configured origin.
func (a *App) Client(ctx context.Context) (*roaring.Client, error) {
	return a.Auth.Client(ctx)
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary().Map()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Quiet output is meant for programs; keep stderr clean there too.
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		a.printStats(a.Collector.Summary())
	}
	return nil
}

// PrintStats writes the session stats line to stderr when --stats is set.
// Commands that bypass OK for raw output call it themselves.
func (a *App) PrintStats() {
	if a.Flags.Stats && a.Collector != nil {
		a.printStats(a.Collector.Summary())
	}
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStats outputs a compact stats line to stderr.
func (a *App) printStats(stats observability.SessionMetrics) {
	var parts []string

	duration := stats.EndTime.Sub(stats.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	if stats.TotalRequests == 1 {
		parts = append(parts, "1 request")
	} else if stats.TotalRequests > 1 {
		parts = append(parts, fmt.Sprintf("%d requests", stats.TotalRequests))
	}
	if stats.TokenRefreshes > 0 {
		parts = append(parts, fmt.Sprintf("%d token refreshes", stats.TokenRefreshes))
	}
	if stats.FailedRequests > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", stats.FailedRequests))
	}

	fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
}

// IsInteractive reports whether prompts can be shown: stdin and stdout are
// terminals and no machine output mode is selected.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.Quiet || a.Flags.YAML {
		return false
	}
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
