package schema

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"ecometl/pkg/records"
)

// EntityType identifies which rule table a record was judged against.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityOrder    EntityType = "order"
)

// Reason enumerates why a record was kept out of the store. Field- and
// record-level reasons come from validation, UnresolvedCustomer from the
// linker, ConstraintViolation from the store itself.
type Reason string

const (
	ReasonMalformedRecord     Reason = "MalformedRecord"
	ReasonMissingPrimaryKey   Reason = "MissingPrimaryKey"
	ReasonInvalidEmail        Reason = "InvalidEmail"
	ReasonInvalidAmount       Reason = "InvalidAmount"
	ReasonUnparsableDate      Reason = "UnparsableDate"
	ReasonInvalidEnumValue    Reason = "InvalidEnumValue"
	ReasonUnresolvedCustomer  Reason = "UnresolvedCustomer"
	ReasonConstraintViolation Reason = "ConstraintViolation"
)

// Rejection is the audit trail for one discarded record. It never reaches the
// analytical schema; the quality reporter is its only consumer.
type Rejection struct {
	Entity      EntityType
	SourceID    string // best-effort identifier, may be "" for broken records
	Reason      Reason
	Detail      string // human-readable specifics, e.g. the offending value
	Raw         records.Record
	Fingerprint uint64 // xxh3 over the canonical raw payload
}

// NewRejection builds a Rejection and fingerprints the raw payload so
// duplicate rejects can be spotted across runs without shipping the payload.
func NewRejection(entity EntityType, sourceID string, reason Reason, detail string, raw records.Record) Rejection {
	return Rejection{
		Entity:      entity,
		SourceID:    sourceID,
		Reason:      reason,
		Detail:      detail,
		Raw:         raw,
		Fingerprint: FingerprintRecord(raw),
	}
}

// FingerprintRecord hashes a record in key order so that map iteration order
// does not change the digest.
func FingerprintRecord(r records.Record) uint64 {
	if len(r) == 0 {
		return 0
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		if v := r[k]; v != nil {
			// Nested values (address objects) marshal deterministically enough
			// for audit purposes; scalars dominate in practice.
			if s, ok := v.(string); ok {
				b.WriteString(s)
			} else if raw, err := json.Marshal(v); err == nil {
				b.Write(raw)
			}
		}
		b.WriteByte('\x1f')
	}
	return xxh3.HashString(b.String())
}
