// Package report aggregates per-run quality counters: how many records each
// entity produced, how many survived each stage, and why the rest were
// rejected. It never affects control flow; the pipeline feeds it and it
// talks to the log and the metrics backend at the end of the run.
package report

import (
	"log"
	"sort"
	"time"

	"ecometl/internal/metrics"
	"ecometl/internal/schema"
	"ecometl/internal/storage"
)

// Run holds the counters for one pipeline execution. Not safe for concurrent
// use; the pipeline stages feed it sequentially.
type Run struct {
	Job   string
	RunID string

	started   time.Time
	extracted map[schema.EntityType]int
	deduped   map[schema.EntityType]int
	accepted  map[schema.EntityType]int
	rejected  map[schema.EntityType]map[schema.Reason]int

	samples   []schema.Rejection
	sampleCap int
}

// NewRun starts a counter set for one execution. sampleCap bounds how many
// full rejection records are kept for the summary log (0 keeps none).
func NewRun(job, runID string, sampleCap int) *Run {
	return &Run{
		Job:       job,
		RunID:     runID,
		started:   time.Now(),
		extracted: map[schema.EntityType]int{},
		deduped:   map[schema.EntityType]int{},
		accepted:  map[schema.EntityType]int{},
		rejected:  map[schema.EntityType]map[schema.Reason]int{},
		sampleCap: sampleCap,
	}
}

// Extracted records how many raw records an entity source produced.
func (r *Run) Extracted(e schema.EntityType, n int) { r.extracted[e] += n }

// Deduplicated records rows collapsed by intra-run deduplication.
func (r *Run) Deduplicated(e schema.EntityType, n int) { r.deduped[e] += n }

// Accepted records rows that reached the loader.
func (r *Run) Accepted(e schema.EntityType, n int) { r.accepted[e] += n }

// Reject records validation- and link-phase rejections. These count against
// the extracted total in the conservation check.
func (r *Run) Reject(rejs ...schema.Rejection) {
	for _, rej := range rejs {
		byReason := r.rejected[rej.Entity]
		if byReason == nil {
			byReason = map[schema.Reason]int{}
			r.rejected[rej.Entity] = byReason
		}
		byReason[rej.Reason]++
		if len(r.samples) < r.sampleCap {
			r.samples = append(r.samples, rej)
		}
	}
}

// RejectedCount returns the rejection total for one entity.
func (r *Run) RejectedCount(e schema.EntityType) int {
	total := 0
	for _, n := range r.rejected[e] {
		total += n
	}
	return total
}

// LogSummary writes the run summary as key=value log lines and forwards the
// final counts to the metrics backend. Load-time drops (constraint
// violations, orders whose customer vanished) live in load.Dropped and are
// reported per reason but kept out of the pipeline conservation check,
// since those rows were already counted as accepted.
func (r *Run) LogSummary(load storage.LoadSummary) {
	elapsed := time.Since(r.started).Round(time.Millisecond)

	for _, e := range []schema.EntityType{schema.EntityCustomer, schema.EntityOrder} {
		log.Printf("summary: job=%s run=%s entity=%s extracted=%d deduplicated=%d accepted=%d rejected=%d",
			r.Job, r.RunID, e, r.extracted[e], r.deduped[e], r.accepted[e], r.RejectedCount(e))
		for _, reason := range sortedReasons(r.rejected[e]) {
			log.Printf("summary: job=%s run=%s entity=%s reason=%s count=%d",
				r.Job, r.RunID, e, reason, r.rejected[e][reason])
		}
		if got, want := r.accepted[e]+r.RejectedCount(e)+r.deduped[e], r.extracted[e]; got != want {
			log.Printf("summary: job=%s run=%s entity=%s conservation_mismatch accounted=%d extracted=%d",
				r.Job, r.RunID, e, got, want)
		}
	}

	loadDrops := map[schema.EntityType]map[schema.Reason]int{}
	for _, rej := range load.Dropped {
		byReason := loadDrops[rej.Entity]
		if byReason == nil {
			byReason = map[schema.Reason]int{}
			loadDrops[rej.Entity] = byReason
		}
		byReason[rej.Reason]++
	}

	log.Printf("summary: job=%s run=%s load customers_inserted=%d customers_updated=%d customers_skipped=%d",
		r.Job, r.RunID, load.Customers.Inserted, load.Customers.Updated, load.Customers.Skipped)
	log.Printf("summary: job=%s run=%s load orders_inserted=%d orders_updated=%d orders_skipped=%d orders_missing_date=%d",
		r.Job, r.RunID, load.Orders.Inserted, load.Orders.Updated, load.Orders.Skipped, load.OrdersMissingDate)
	for e, byReason := range loadDrops {
		for _, reason := range sortedReasons(byReason) {
			log.Printf("summary: job=%s run=%s load entity=%s reason=%s count=%d",
				r.Job, r.RunID, e, reason, byReason[reason])
		}
	}
	log.Printf("summary: job=%s run=%s store customers=%d orders=%d orphans=%d elapsed=%s",
		r.Job, r.RunID, load.Verify.Customers, load.Verify.Orders, load.Verify.Orphans, elapsed)

	for _, rej := range r.samples {
		log.Printf("summary: job=%s run=%s sample entity=%s id=%q reason=%s detail=%q fingerprint=%x",
			r.Job, r.RunID, rej.Entity, rej.SourceID, rej.Reason, rej.Detail, rej.Fingerprint)
	}

	r.forwardMetrics(load, loadDrops)
}

func (r *Run) forwardMetrics(load storage.LoadSummary, loadDrops map[schema.EntityType]map[schema.Reason]int) {
	for e, n := range r.accepted {
		metrics.RecordAccepted(r.Job, string(e), int64(n))
	}
	for e, byReason := range r.rejected {
		for reason, n := range byReason {
			metrics.RecordRejected(r.Job, string(e), string(reason), int64(n))
		}
	}
	for e, byReason := range loadDrops {
		for reason, n := range byReason {
			metrics.RecordRejected(r.Job, string(e), string(reason), int64(n))
		}
	}
	for entity, stats := range map[string]storage.UpsertStats{
		string(schema.EntityCustomer): load.Customers,
		string(schema.EntityOrder):    load.Orders,
	} {
		metrics.RecordUpserts(r.Job, entity, "inserted", int64(stats.Inserted))
		metrics.RecordUpserts(r.Job, entity, "updated", int64(stats.Updated))
		metrics.RecordUpserts(r.Job, entity, "skipped", int64(stats.Skipped))
	}
}

func sortedReasons(m map[schema.Reason]int) []schema.Reason {
	out := make([]schema.Reason, 0, len(m))
	for reason := range m {
		out = append(out, reason)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
