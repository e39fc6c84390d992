// Package metrics exposes Prometheus collectors for the mirror service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mirrorTasksTotal            *prometheus.CounterVec
	mirrorAssetsDiscoveredTotal *prometheus.CounterVec
	mirrorPublishFailuresTotal  prometheus.Counter
	mirrorSessionActive         prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		mirrorTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemirror_tasks_total",
				Help: "Total number of executed tasks, labeled by task type and outcome.",
			},
			[]string{"task_type", "status"},
		)

		mirrorAssetsDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemirror_assets_discovered_total",
				Help: "Total number of asset URLs returned by page tasks, labeled by page site.",
			},
			[]string{"site"},
		)

		mirrorPublishFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitemirror_publish_failures_total",
				Help: "Total number of asset batches that could not be published.",
			},
		)

		mirrorSessionActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitemirror_session_active",
				Help: "1 while an archival session is active, 0 otherwise.",
			},
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
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask counts one executed task. status is "ok" or an error category.
func ObserveTask(taskType string, status string) {
	mirrorTasksTotal.WithLabelValues(taskType, status).Inc()
}

// ObserveAssets adds the number of assets a page task reported.
func ObserveAssets(pageURL string, count int) {
	if count <= 0 {
		return
	}
	mirrorAssetsDiscoveredTotal.WithLabelValues(SanitizeSite(pageURL)).Add(float64(count))
}

// ObservePublishFailure counts a failed asset batch publish.
func ObservePublishFailure() {
	mirrorPublishFailuresTotal.Inc()
}

// SetSessionActive records whether an archival session is running.
func SetSessionActive(active bool) {
	if active {
		mirrorSessionActive.Set(1)
		return
	}
	mirrorSessionActive.Set(0)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
