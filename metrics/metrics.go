package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idsrs_events_ingested_total",
			Help: "Total number of log lines parsed into an Event",
		},
		[]string{"parser"},
	)

	EventsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idsrs_events_discarded_total",
			Help: "Total number of lines or events discarded before reaching the detector",
		},
		[]string{"reason"},
	)

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idsrs_alerts_emitted_total",
			Help: "Total number of alerts emitted by the detector",
		},
		[]string{"kind"},
	)

	AlertSinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idsrs_alert_sink_errors_total",
			Help: "Total number of alert delivery failures, by sink",
		},
		[]string{"sink"},
	)

	ActiveSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "idsrs_active_sources",
			Help: "Number of source IPs currently tracked by the detector",
		},
	)

	CleanupRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idsrs_cleanup_removed_total",
			Help: "Total number of stale source entries removed by the cleanup scheduler",
		},
	)

	ObserveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idsrs_observe_duration_seconds",
			Help:    "Time taken by Detector.Observe per event",
			Buckets: prometheus.DefBuckets,
		},
	)
)
