// Package format turns raw backend values into the strings shown on the
// dashboard. All output uses the German locale of the add-on UI.
package format

import (
	"html"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown for absent values.
const Placeholder = "-"

const (
	timestampLayout = "02.01.2006, 15:04:05"
	clockLayout     = "15:04:05"
)

var locale = language.German

// Layouts accepted by Timestamp. Fractional seconds are accepted after the
// seconds field even where the layout does not mention them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// SensorKey renders an identifier like "pv_production" as "Pv Production".
func SensorKey(key string) string {
	if key == "" {
		return ""
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Number renders v with at most two fractional digits, or the placeholder.
func Number(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return Float(*v)
}

func Float(v float64) string {
	p := message.NewPrinter(locale)
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Timestamp formats an ISO date-time in the local zone. See TimestampIn.
func Timestamp(raw string) string {
	return TimestampIn(raw, time.Local)
}

// TimestampIn formats raw in loc. Timestamps without a zone are taken to be
// in loc already. Unparseable input is returned unchanged.
func TimestampIn(raw string, loc *time.Location) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, trimmed, loc)
		if err == nil {
			return t.In(loc).Format(timestampLayout)
		}
	}
	return raw
}

// Clock renders the time of day of t, used for the last-update marker.
func Clock(t time.Time) string {
	return t.Format(clockLayout)
}

// EscapeText neutralises markup in untrusted text.
func EscapeText(s string) string {
	return html.EscapeString(s)
}
