package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slides_ai_requests_total",
			Help: "Total number of requests to the content AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slides_ai_request_duration_seconds",
			Help:    "Histogram of content AI request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	imageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slides_image_requests_total",
			Help: "Total number of requests to the image generation API.",
		},
		[]string{"status"},
	)
	imageRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slides_image_request_duration_seconds",
			Help:    "Histogram of image generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func metricsObserveAIRequest(model string, ok bool, elapsed time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	aiRequestsTotal.WithLabelValues(model, status).Inc()
	aiRequestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

func metricsObserveImageRequest(ok bool, elapsed time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	imageRequestsTotal.WithLabelValues(status).Inc()
	imageRequestDuration.Observe(elapsed.Seconds())
}
