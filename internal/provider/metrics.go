package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RequestsTotal.
const (
	outcomeOK       = "ok"
	outcomeCacheHit = "cache_hit"
	outcomeError    = "error"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_provider_requests_total",
			Help: "Provider searches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospect_provider_request_duration_seconds",
			Help:    "Duration of provider searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	RecordsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_provider_records_total",
			Help: "Records returned by provider searches",
		},
		[]string{"source"},
	)
)
