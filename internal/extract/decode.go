// Package extract implements the bronze stage: it reads raw JSON entity files
// and produces untyped records for validation. It is deliberately a dumb copy
// step; no cleaning happens here.
//
// Accepted input shapes, matching common export formats:
//
//   - root array of objects: [ {...}, {...} ]
//   - root object with one array-of-object field (envelope): { "records": [...] }
//   - single object, optionally followed by more objects (NDJSON)
//
// Numbers are decoded with json.Number so monetary values survive untouched
// until the money normalizer sees them.
package extract

import (
	"encoding/json"
	"fmt"
	"io"

	"ecometl/pkg/records"
)

// DecodeAll reads every record from r. Non-object elements inside a root
// array are an error; junk top-level values between NDJSON objects are not
// tolerated either, since silent skipping would break the run's row
// accounting.
func DecodeAll(r io.Reader) ([]records.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode root: %w", err)
	}

	var out []records.Record
	switch v := root.(type) {
	case []any:
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d in array is not an object (got %T)", i, elem)
			}
			out = append(out, records.Record(obj))
		}

	case map[string]any:
		if slice := findObjectSlice(v); slice != nil {
			for _, obj := range slice {
				out = append(out, records.Record(obj))
			}
		} else {
			out = append(out, records.Record(v))
		}

	default:
		return nil, fmt.Errorf("unsupported top-level JSON type %T (want object or array)", v)
	}

	// Trailing NDJSON objects after the root value.
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode subsequent value: %w", err)
		}
		out = append(out, records.Record(obj))
	}

	return out, nil
}

// findObjectSlice searches a top-level object for a value that is an
// array-of-objects and returns the first such slice. This handles envelope
// exports like {"records": [...], "meta": {...}}.
func findObjectSlice(root map[string]any) []map[string]any {
	for _, v := range root {
		rawSlice, ok := v.([]any)
		if !ok || len(rawSlice) == 0 {
			continue
		}
		objects := make([]map[string]any, 0, len(rawSlice))
		valid := true
		for _, elem := range rawSlice {
			if elem == nil {
				continue
			}
			m, ok := elem.(map[string]any)
			if !ok {
				valid = false
				break
			}
			objects = append(objects, m)
		}
		if valid && len(objects) > 0 {
			return objects
		}
	}
	return nil
}
