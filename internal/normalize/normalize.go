// Package normalize contains the pure field-level cleaning functions used by
// the record validators. Each function takes one raw value and either returns
// its canonical typed form or reports why it cannot. No side effects.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ecometl/pkg/records"
)

// Sentinel failures. Validators map these onto rejection reasons.
var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrUnparsableDate   = errors.New("unparsable date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidEnumValue = errors.New("value not in allowed set")
)

// dateLayouts are tried in order; the first successful parse wins. Layouts
// with a clock component report hasTime=true so timestamp fields can retain
// time-of-day while date fields keep the calendar date only.
var dateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02", false},
	{"02/01/2006 15:04:05", true},
	{"02/01/2006", false},
}

// Email trims and lowercases v, then requires exactly one "@" with non-empty
// local and domain parts.
func Email(v any) (string, error) {
	s := strings.ToLower(strings.TrimSpace(records.AsString(v)))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEmail)
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.IndexByte(s[at+1:], '@') >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return s, nil
}

// Date parses v against the known layouts (ISO date-time, ISO date, then
// day/month/year forms) plus any extra layouts, in that order. The boolean
// reports whether the matched layout carried a time-of-day.
func Date(v any, extraLayouts ...string) (time.Time, bool, error) {
	if t, ok := v.(time.Time); ok {
		return t, true, nil
	}
	s := strings.TrimSpace(records.AsString(v))
	if s == "" {
		return time.Time{}, false, fmt.Errorf("%w: empty", ErrUnparsableDate)
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.hasTime, nil
		}
	}
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, strings.Contains(layout, ":"), nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrUnparsableDate, s)
}

// Money strips currency formatting (symbols, thousands separators) and parses
// a fixed-point decimal rounded to 2 fractional digits. The result must be
// strictly positive.
func Money(v any) (decimal.Decimal, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	default:
		s = records.AsString(v)
	}
	s = stripMoneyFormatting(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, records.AsString(v))
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is not > 0", ErrInvalidAmount, d)
	}
	return d.Round(2), nil
}

// stripMoneyFormatting keeps digits, the decimal point, and a minus sign that
// precedes the first digit ("-$5" and "$-5" both stay negative); everything
// else (currency symbols, commas, spaces) is dropped.
func stripMoneyFormatting(s string) string {
	var b strings.Builder
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Enum performs a case-sensitive membership check against the allowed set.
func Enum(v any, allowed []string) (string, error) {
	s := strings.TrimSpace(records.AsString(v))
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrInvalidEnumValue, s, allowed)
}

// Int parses an integer from the common decoded-JSON shapes. json.Number and
// float64 are accepted when they carry an integral value.
func Int(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case float64:
		n := int64(t)
		if float64(n) != t {
			return 0, fmt.Errorf("%v is not integral", t)
		}
		return n, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, fmt.Errorf("type %T not int-convertible", v)
	}
}

// Text trims surrounding whitespace from a free-form string field.
func Text(v any) string { return strings.TrimSpace(records.AsString(v)) }
