package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lubando_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AuthAttempts counts login steps (send|resend|verify) by result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lubando_auth_attempts_total",
			Help: "Total number of login steps",
		},
		[]string{"step", "result"},
	)

	// CheckIns counts check-in submissions by period and result (success|invalid|failure).
	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lubando_checkins_total",
			Help: "Total number of check-in submissions",
		},
		[]string{"period", "result"},
	)

	// Uploads counts relayed photos by result (success|failure).
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lubando_uploads_total",
			Help: "Total number of relayed photo uploads",
		},
		[]string{"result"},
	)

	// UpstreamRequests counts calls to the third-party API by operation and status class.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lubando_upstream_requests_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"op", "status"},
	)

	// UpstreamLatency measures upstream call latency per operation.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lubando_upstream_request_duration_seconds",
			Help:    "Upstream API latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
