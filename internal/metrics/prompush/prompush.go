// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It adapts the generic metrics.Backend interface to Prometheus by mapping
// the pipeline's label sets onto CounterVec/SummaryVec collectors and
// pushing the registry to a Pushgateway instead of exposing a scrape
// endpoint. All Prometheus-specific dependencies stay inside this package so
// alternative backends can be swapped in without touching the pipeline.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ecometl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // "pipeline_stage_total"
	stageDuration *prometheus.SummaryVec // "pipeline_stage_duration_seconds"

	acceptedCounter *prometheus.CounterVec // "pipeline_accepted_total"
	rejectedCounter *prometheus.CounterVec // "pipeline_rejected_total"
	upsertCounter   *prometheus.CounterVec // "pipeline_upserts_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName doubles as the Pushgateway "job" grouping key.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "ecometl"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Total pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipeline_stage_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	acceptedCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_accepted_total",
			Help: "Records accepted by validation and linking, per entity.",
		},
		[]string{"entity"},
	)
	rejectedCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rejected_total",
			Help: "Records rejected, per entity and reason.",
		},
		[]string{"entity", "reason"},
	)
	upsertCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_upserts_total",
			Help: "Rows the store reported as inserted/updated/skipped, per entity.",
		},
		[]string{"entity", "outcome"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, acceptedCounter, rejectedCounter, upsertCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:      gatewayURL,
		jobName:         jobName,
		reg:             reg,
		stageCounter:    stageCounter,
		stageDuration:   stageDuration,
		acceptedCounter: acceptedCounter,
		rejectedCounter: rejectedCounter,
		upsertCounter:   upsertCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipeline_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "pipeline_accepted_total":
		b.acceptedCounter.WithLabelValues(labels["entity"]).Add(delta)
	case "pipeline_rejected_total":
		b.rejectedCounter.WithLabelValues(labels["entity"], labels["reason"]).Add(delta)
	case "pipeline_upserts_total":
		b.upsertCounter.WithLabelValues(labels["entity"], labels["outcome"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipeline_stage_duration_seconds" {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
