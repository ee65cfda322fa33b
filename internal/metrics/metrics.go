// Package metrics declares the prometheus collectors shared by the service, job and
// HTTP layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liveflow_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liveflow_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// outcome: redirect, preview, not_found, denied
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_redirects_total",
			Help: "Short link resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// result: recorded, dropped, failed
	Clicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_clicks_total",
			Help: "Click records by result",
		},
		[]string{"result"},
	)

	// result: sampled, ended, error
	Samples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_samples_total",
			Help: "Viewer sample attempts by result",
		},
		[]string{"result"},
	)

	SamplingRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "liveflow_sampling_run_duration_seconds",
			Help:    "Duration of a full sampling pass",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liveflow_active_streams",
			Help: "Streams sampled in the last run",
		},
	)

	// trigger: user, timer, sweep; outcome: posted, skipped, already_resolved
	DraftResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_draft_resolutions_total",
			Help: "Draft resolution attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// channel: primary_social, fallback_webhook; status: sent, failed, skipped
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_deliveries_total",
			Help: "Deliveries written by channel and status",
		},
		[]string{"channel", "status"},
	)

	// reason: owner, global, critical
	QuotaDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveflow_quota_denials_total",
			Help: "Posts routed away from the primary channel by quota",
		},
		[]string{"reason"},
	)
)
