// Package metrics is a small, backend-agnostic layer for recording
// operational metrics from the pipeline.
//
// It exposes a narrow Backend interface (counters plus duration
// observations) behind a global that defaults to a no-op, so metric calls
// are always safe even when no backend is configured. Concrete systems live
// in subpackages; the rest of the codebase depends only on this package,
// mirroring the storage.Repository pattern.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency + success/failure for one pipeline stage
// (extract, validate, link, load).
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("pipeline_stage_total", 1, lbls)
	backend.ObserveHistogram("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordAccepted counts records that passed validation and linking for an
// entity ("customer" or "order").
func RecordAccepted(job, entity string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_accepted_total", float64(delta), Labels{
		"job":    job,
		"entity": entity,
	})
}

// RecordRejected counts rejections per entity and reason.
func RecordRejected(job, entity, reason string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rejected_total", float64(delta), Labels{
		"job":    job,
		"entity": entity,
		"reason": reason,
	})
}

// RecordUpserts counts rows the store reported as inserted, updated, or
// skipped for an entity.
func RecordUpserts(job, entity, outcome string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_upserts_total", float64(delta), Labels{
		"job":     job,
		"entity":  entity,
		"outcome": outcome,
	})
}
