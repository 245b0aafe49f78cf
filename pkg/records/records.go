// Package records defines the raw record type exchanged between the
// extraction stage and the validators, plus small typed accessors.
//
// A Record is an untyped field map straight out of JSON decoding (with
// json.Number preserved). It is ephemeral: validators consume it and emit
// typed entities; only rejections keep a reference for audit.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is one raw entity instance: field name -> value (string, json.Number,
// bool, nil, or nested map/slice for structured fields like address).
type Record map[string]any

// String returns the string form of the value at key. Non-string scalars are
// formatted; nil and missing keys yield "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	return AsString(v)
}

// FirstNonEmpty returns the string form of the first key whose value is
// non-empty. Used for aliased identifiers (order_id vs transaction_id).
func (r Record) FirstNonEmpty(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Has reports whether key is present with a non-nil, non-empty value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// AsString converts common decoded-JSON types to string without fmt.Sprint
// overhead on the frequent cases.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
