// Package config defines the canonical, JSON-serializable configuration model
// for the pipeline. It is intentionally small, explicit, and dependency-free
// so that runs can be described by a single file on disk and passed through
// the program without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: field names in Go mirror the JSON structure used in pipeline
//     files under configs/pipelines/*.json.
//  3. Minimalism: no third-party config libraries; decoding is performed by
//     the standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job": "ecommerce",
//	  "sources": {
//	    "customers":    "data/raw/customers_master.json",
//	    "transactions": "data/raw/payment_transactions.json",
//	    "reviews":      ["data/raw/customer_reviews_jan.json"]
//	  },
//	  "validation": { "dedup_policy": "keep-first" },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgresql://..." } },
//	  "runtime": { "batch_size": 1000, "max_retries": 3 }
//	}
package config

import "encoding/json"

// Pipeline describes one full run in JSON. It is the top-level object decoded
// from a pipeline file.
type Pipeline struct {
	// Job names the run for logging and metrics labeling.
	Job string `json:"job"`

	// Sources locates the raw JSON entity files.
	Sources Sources `json:"sources"`

	// Validation is a free-form options bag interpreted by the validators.
	// Recognized keys:
	//   status_enum  ([]string) override of the allowed order statuses
	//   date_layouts ([]string) extra Go time layouts tried after the builtins
	//   dedup_policy (string)   "keep-first" | "keep-last" | "most-complete"
	Validation Options `json:"validation"`

	// Storage describes where validated rows are written.
	Storage Storage `json:"storage"`

	Runtime RuntimeConfig `json:"runtime"`
}

// Sources holds the per-entity input file paths. Reviews may span several
// files (monthly exports); they are merged during order assembly.
type Sources struct {
	Customers    string   `json:"customers"`
	Transactions string   `json:"transactions"`
	Reviews      []string `json:"reviews"`
}

// Storage selects the sink used to persist validated records.
type Storage struct {
	// Kind selects the storage implementation: "postgres" or "sqlite".
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink shared by all backends.
type DBConfig struct {
	// DSN is the connection string (pgxpool URL, or a SQLite path/URI).
	DSN string `json:"dsn"`

	// CustomersTable and OrdersTable are the target table names. Defaults of
	// "customers" / "orders" are applied by the repository when empty.
	CustomersTable string `json:"customers_table"`
	OrdersTable    string `json:"orders_table"`

	// AutoCreateSchema applies the analytical DDL (tables, constraints,
	// views) before loading.
	AutoCreateSchema bool `json:"auto_create_schema"`
}

// RuntimeConfig controls batching and retry behavior for the load stage.
type RuntimeConfig struct {
	// BatchSize is the number of rows per upsert round-trip.
	BatchSize int `json:"batch_size"`

	// MaxRetries bounds the retry attempts for transient store errors before
	// the batch is marked fatally failed.
	MaxRetries int `json:"max_retries"`

	// RetryBackoffMS is the initial backoff interval in milliseconds; the
	// interval grows exponentially between attempts.
	RetryBackoffMS int `json:"retry_backoff_ms"`

	// RejectSamples caps how many rejection examples are logged per reason.
	RejectSamples int `json:"reject_samples"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It performs only
// minimal type coercion and returns provided defaults when a key is absent or
// of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings (or an array of interface values containing strings). Returns nil
// when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null options
// object decodes to a non-nil, empty Options map. This removes the need for
// nil checks at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
