// Package metrics holds the Prometheus collectors for the daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mineb",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mineb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mineb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	miningTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mineb",
			Subsystem: "mining",
			Name:      "ticks_total",
			Help:      "Total number of mining ticks processed.",
		},
		[]string{"status"},
	)

	tokensMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mineb",
			Subsystem: "mining",
			Name:      "tokens_minted_total",
			Help:      "Total tokens credited across all accounts.",
		},
	)
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, miningTicks, tokensMinted)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveTick records one mining tick outcome and the minted reward.
func ObserveTick(status string, reward int64) {
	miningTicks.WithLabelValues(status).Inc()
	if reward > 0 {
		tokensMinted.Add(float64(reward))
	}
}

// ObserveHTTP records one completed HTTP request.
func ObserveHTTP(method, path string, status int, dur time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

// TrackInFlight wraps a handler with the in-flight request gauge.
func TrackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		next.ServeHTTP(w, r)
	})
}
