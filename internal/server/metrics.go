package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paperia_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Upload pipeline metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperia_uploads_total",
			Help: "Total number of document uploads",
		},
		[]string{"status"}, // status: ok, rejected, failed
	)

	uploadProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paperia_upload_processing_duration_seconds",
			Help:    "Time from upload received to document stored",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paperia_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// Review metrics
	reviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperia_reviews_total",
			Help: "Total number of review submissions",
		},
		[]string{"kind", "status"}, // status: ok, invalid, conflict, failed
	)

	// Ancillary service calls
	serviceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperia_service_calls_total",
			Help: "Total number of ancillary service calls",
		},
		[]string{"service", "status"},
	)
)
