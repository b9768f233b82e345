// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	uploadsTotal               *prometheus.CounterVec
	analyzerRequestsTotal      *prometheus.CounterVec
	analyzerDurationSeconds    *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_uploads_total",
				Help: "Total number of upload requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		analyzerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_analyzer_requests_total",
				Help: "Total analyzer calls, labeled by analyzer and status.",
			},
			[]string{"analyzer", "status"},
		)

		analyzerDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_analyzer_duration_seconds",
				Help:    "Histogram of analyzer call latencies, labeled by analyzer.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
			},
			[]string{"analyzer"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveUpload records the outcome of one upload request.
func ObserveUpload(outcome string) {
	if uploadsTotal == nil {
		return
	}
	uploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalyzer records one analyzer call.
func ObserveAnalyzer(analyzer, status string, duration time.Duration) {
	if analyzerRequestsTotal == nil {
		return
	}
	analyzerRequestsTotal.WithLabelValues(analyzer, status).Inc()
	analyzerDurationSeconds.WithLabelValues(analyzer).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
