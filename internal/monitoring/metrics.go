// Package monitoring exposes the pipeline's Prometheus metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the triage pipeline.
type Metrics struct {
	// Ingest metrics
	TicketsIngested *prometheus.CounterVec
	TriageFallbacks prometheus.Counter
	TriageDuration  prometheus.Histogram

	// Drain/queue metrics
	StormVerdicts *prometheus.CounterVec
	QueueDepth    prometheus.Gauge

	// Alerting metrics
	WebhookDeliveries *prometheus.CounterVec
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TicketsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_tickets_ingested_total",
				Help: "Tickets accepted on the ingest path",
			},
			[]string{"category", "model"}, // model: primary, fallback
		),

		TriageFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_fallback_total",
				Help: "Invocations where the primary classifier timed out or failed",
			},
		),

		TriageDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_classify_duration_seconds",
				Help:    "Duration of the classify+score step including fallback",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 0.6, 1},
			},
		),

		StormVerdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_storm_verdicts_total",
				Help: "Storm deduplicator verdicts by kind",
			},
			[]string{"verdict"}, // normal, master, suppress
		),

		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "triage_queue_depth",
				Help: "Current number of tickets in the priority queue",
			},
		),

		WebhookDeliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_webhook_deliveries_total",
				Help: "Webhook delivery attempts by outcome",
			},
			[]string{"status"}, // delivered, failed, dropped
		),
	}
}
