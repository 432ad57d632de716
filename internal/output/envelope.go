package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"gopkg.in/yaml.v3"
)

// Response is the success envelope for JSON output.
type Response struct {
	OK      bool           `json:"ok" yaml:"ok"`
	Data    any            `json:"data,omitempty" yaml:"data,omitempty"`
	Summary string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ErrorResponse is the error envelope for JSON output.
type ErrorResponse struct {
	OK    bool   `json:"ok" yaml:"ok"`
	Error string `json:"error" yaml:"error"`
	Code  string `json:"code" yaml:"code"`
	Hint  string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatAuto   Format = iota // Auto-detect: TTY → Styled, non-TTY → JSON
	FormatJSON
	FormatYAML
	FormatStyled // ANSI styled output (forced, even when piped)
	FormatQuiet  // Data only, no envelope
)

// ParseFormat maps a config/env format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "styled":
		return FormatStyled, nil
	case "quiet":
		return FormatQuiet, nil
	default:
		return FormatAuto, fmt.Errorf("unknown output format %q (want auto, json, yaml, styled, or quiet)", s)
	}
}

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
	JQ     string // jq expression applied to the data field
	Locale Locale
}

// DefaultOptions returns options for standard output.
func DefaultOptions() Options {
	return Options{
		Format: FormatAuto,
		Writer: os.Stdout,
		Locale: DetectLocale(),
	}
}

// Writer handles all output formatting.
type Writer struct {
	opts Options
}

// New creates a new output writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Locale.printer == nil {
		opts.Locale = NewLocale("")
	}
	return &Writer{opts: opts}
}

// Locale returns the writer's locale for formatting dates in data.
func (w *Writer) Locale() Locale {
	return w.opts.Locale
}

// Format returns the configured output format, before TTY detection.
func (w *Writer) Format() Format {
	return w.opts.Format
}

// OK outputs a success response.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}

	if w.opts.JQ != "" {
		filtered, err := ApplyJQ(w.opts.JQ, resp.Data)
		if err != nil {
			return err
		}
		resp.Data = filtered
	}
	return w.write(resp)
}

// Err outputs an error response.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	resp := &ErrorResponse{
		OK:    false,
		Error: e.Message,
		Code:  e.Code,
		Hint:  e.Hint,
	}
	return w.write(resp)
}

func (w *Writer) write(v any) error {
	format := w.opts.Format

	if format == FormatAuto {
		if isTTY(w.opts.Writer) {
			format = FormatStyled
		} else {
			format = FormatJSON
		}
	}

	switch format {
	case FormatQuiet:
		if resp, ok := v.(*Response); ok {
			return w.writeJSON(resp.Data)
		}
		return w.writeJSON(v)
	case FormatYAML:
		return w.writeYAML(v)
	case FormatStyled:
		return w.writeStyled(v)
	default:
		return w.writeJSON(v)
	}
}

// isTTY checks if the writer is a terminal.
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(f.Fd())
	}
	return false
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (w *Writer) writeYAML(v any) error {
	// yaml.v3 ignores MarshalJSON, so raw API bodies are normalized first.
	if resp, ok := v.(*Response); ok {
		copied := *resp
		copied.Data = NormalizeData(resp.Data)
		v = &copied
	}

	enc := yaml.NewEncoder(w.opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (w *Writer) writeStyled(v any) error {
	r := NewRenderer(w.opts.Writer, true)
	r.locale = w.opts.Locale
	switch resp := v.(type) {
	case *Response:
		return r.RenderResponse(w.opts.Writer, resp)
	case *ErrorResponse:
		return r.RenderError(w.opts.Writer, resp)
	default:
		return w.writeJSON(v)
	}
}

// NormalizeData converts json.RawMessage, json.Marshaler values and typed
// structs (at any depth) to plain maps, slices and scalars via a JSON round-trip.
func NormalizeData(data any) any {
	if data == nil {
		return nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return data
	}
	return out
}

// ResponseOption modifies a Response.
type ResponseOption func(*Response)

// WithSummary adds a summary to the response.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithContext adds context to the response.
func WithContext(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Context == nil {
			r.Context = make(map[string]any)
		}
		r.Context[key] = value
	}
}

// WithMeta adds metadata to the response.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}
