package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/term"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool
	locale Locale

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
}

// NewRenderer creates a renderer. Styling is enabled when writing to a TTY or
// when forceStyled is true, and is always off when NO_COLOR is set.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, tty := terminalInfo(w)
	styled := tty || forceStyled
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		styled = false
	}

	r := &Renderer{
		width:  width,
		styled: styled,
		locale: NewLocale(""),
	}

	if styled {
		r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7")).Bold(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#737AA2"))
		r.Label = lipgloss.NewStyle().Foreground(lipgloss.Color("#737AA2"))
		r.Data = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0CAF5"))
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("#737AA2")).Italic(true)
	} else {
		r.Summary = lipgloss.NewStyle()
		r.Muted = lipgloss.NewStyle()
		r.Label = lipgloss.NewStyle()
		r.Data = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle()
		r.Hint = lipgloss.NewStyle()
	}

	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80

	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(f.Fd()); err == nil && cols >= 40 {
			width = cols
		}
		isTTY = term.IsTerminal(f.Fd())
	}

	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	r.renderValue(&b, NormalizeData(resp.Data), 0)

	if stats := extractStats(resp.Meta); stats != nil {
		b.WriteString("\n")
		r.renderStats(&b, stats)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")

	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderValue(b *strings.Builder, data any, depth int) {
	indent := strings.Repeat("  ", depth)

	switch d := data.(type) {
	case map[string]any:
		if len(d) == 0 {
			b.WriteString(indent + r.Muted.Render("(empty)") + "\n")
			return
		}
		r.renderObject(b, d, depth)

	case []any:
		if len(d) == 0 {
			b.WriteString(indent + r.Muted.Render("(no results)") + "\n")
			return
		}
		for i, item := range d {
			switch item.(type) {
			case map[string]any, []any:
				b.WriteString(indent + r.Muted.Render(fmt.Sprintf("[%d]", i)) + "\n")
				r.renderValue(b, item, depth+1)
			default:
				b.WriteString(indent + r.Data.Render("• "+r.formatCell("", item)) + "\n")
			}
		}

	case nil:
		b.WriteString(indent + r.Muted.Render("(no data)") + "\n")

	default:
		b.WriteString(indent + r.Data.Render(r.formatCell("", d)) + "\n")
	}
}

// renderObject prints scalar fields as aligned "Label: value" lines, then
// nested objects and arrays as indented sections.
func (r *Renderer) renderObject(b *strings.Builder, data map[string]any, depth int) {
	indent := strings.Repeat("  ", depth)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var scalars, nested []string
	maxLen := 0
	for _, k := range keys {
		switch data[k].(type) {
		case map[string]any, []any:
			nested = append(nested, k)
		default:
			scalars = append(scalars, k)
			if n := lipgloss.Width(formatHeader(k)); n > maxLen {
				maxLen = n
			}
		}
	}

	for _, k := range scalars {
		label := r.Label.Render(fmt.Sprintf("%-*s: ", maxLen, formatHeader(k)))
		value := r.Data.Render(r.truncate(r.formatCell(k, data[k]), len(indent)+maxLen+2))
		b.WriteString(indent + label + value + "\n")
	}

	for _, k := range nested {
		b.WriteString(indent + r.Summary.Render(formatHeader(k)) + "\n")
		r.renderValue(b, data[k], depth+1)
	}
}

// renderStats renders session statistics in a compact one-liner.
func (r *Renderer) renderStats(b *strings.Builder, stats map[string]any) {
	var parts []string
	if v, ok := toFloat(stats["requests"]); ok {
		parts = append(parts, r.locale.FormatNumber(v)+" requests")
	}
	if v, ok := toFloat(stats["token_refreshes"]); ok && v > 0 {
		parts = append(parts, r.locale.FormatNumber(v)+" token refreshes")
	}
	if v, ok := toFloat(stats["latency_ms"]); ok {
		parts = append(parts, r.locale.FormatNumber(v)+"ms")
	}
	if len(parts) > 0 {
		b.WriteString(r.Muted.Render("Stats: "+strings.Join(parts, " | ")) + "\n")
	}
}

func (r *Renderer) truncate(s string, used int) string {
	avail := r.width - used
	if avail < 10 || lipgloss.Width(s) <= avail {
		return s
	}
	runes := []rune(s)
	if len(runes) <= avail {
		return s
	}
	return string(runes[:avail-1]) + "…"
}

func formatHeader(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	words := strings.Fields(key)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatCell renders a scalar. Fields whose name ends in _at or _date and
// parse as timestamps are shown in the user's locale.
func (r *Renderer) formatCell(key string, val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		if isDateKey(key) {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return r.locale.FormatDateTime(t)
			}
			if t, err := time.Parse("2006-01-02", v); err == nil {
				return r.locale.FormatDate(t)
			}
		}
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isDateKey(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "_at") || strings.HasSuffix(k, "_date") || strings.HasSuffix(k, "date")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// extractStats pulls stats from response meta if present.
func extractStats(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	stats, _ := meta["stats"].(map[string]any)
	return stats
}
