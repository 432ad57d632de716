package output

import (
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale holds resolved formatting conventions for dates and numbers.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
}

// DetectLocale resolves the user's locale from environment variables.
// Falls back to en-US if nothing is set or parseable.
func DetectLocale() Locale {
	raw := os.Getenv("LC_ALL")
	if raw == "" {
		raw = os.Getenv("LC_TIME")
	}
	if raw == "" {
		raw = os.Getenv("LANG")
	}
	return NewLocale(raw)
}

// NewLocale creates a Locale from a POSIX locale string (e.g. "sv_SE.UTF-8")
// or BCP 47 tag (e.g. "sv-SE"). Returns en-US for empty or unparseable input.
func NewLocale(raw string) Locale {
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, _ := language.Parse(raw)
	if tag == language.Und {
		tag = language.AmericanEnglish
	}

	return Locale{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// Tag returns the resolved language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// FormatDate formats t as a locale-appropriate date.
func (l Locale) FormatDate(t time.Time) string {
	return t.Format(l.dateLayout())
}

// FormatDateTime formats t as a locale-appropriate date plus 24h clock time.
func (l Locale) FormatDateTime(t time.Time) string {
	return t.Format(l.dateLayout() + " 15:04:05 MST")
}

// FormatNumber formats v with locale-appropriate grouping and decimal separators.
func (l Locale) FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return l.printer.Sprint(number.Decimal(int64(v)))
	}
	return l.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func (l Locale) dateLayout() string {
	region, _ := l.tag.Region()
	if layout, ok := dateLayouts[region.String()]; ok {
		return layout
	}

	base, _ := l.tag.Base()
	if layout, ok := dateLayoutsByLang[base.String()]; ok {
		return layout
	}

	return layoutMDY
}

// Date layouts using Go's reference time (Mon Jan 2 15:04:05 MST 2006).
const (
	layoutMDY    = "Jan 2, 2006"
	layoutDMY    = "2 Jan 2006"
	layoutYMD    = "2006-01-02"
	layoutDMYDot = "2. Jan 2006"
)

// dateLayouts maps ISO 3166-1 region codes to date layouts.
var dateLayouts = map[string]string{
	"US": layoutMDY,
	"PH": layoutMDY,

	"GB": layoutDMY,
	"IE": layoutDMY,
	"AU": layoutDMY,
	"NZ": layoutDMY,
	"FR": layoutDMY,
	"ES": layoutDMY,
	"IT": layoutDMY,
	"NL": layoutDMY,
	"BE": layoutDMY,
	"PL": layoutDMY,
	"DK": layoutDMY,
	"NO": layoutDMY,

	"DE": layoutDMYDot,
	"AT": layoutDMYDot,
	"CH": layoutDMYDot,

	"FI": layoutDMY,
	"SE": layoutYMD,
	"JP": layoutYMD,
	"CN": layoutYMD,
	"KR": layoutYMD,
	"CA": layoutYMD,
}

// dateLayoutsByLang provides fallbacks when region is unknown.
var dateLayoutsByLang = map[string]string{
	"en": layoutMDY,
	"sv": layoutYMD,
	"da": layoutDMY,
	"nb": layoutDMY,
	"nn": layoutDMY,
	"fi": layoutDMY,
	"de": layoutDMYDot,
	"fr": layoutDMY,
	"es": layoutDMY,
	"nl": layoutDMY,
	"ja": layoutYMD,
	"zh": layoutYMD,
}
