// Package metrics exposes Prometheus collectors for the HTTP surface and
// the advisory pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and
// pipeline stage outcomes.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageFailures   *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coinpilot",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coinpilot",
		Subsystem: "advisor",
		Name:      "stage_duration_seconds",
		Help:      "Latency distribution for advisory pipeline stages.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	stageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Subsystem: "advisor",
		Name:      "stage_failures_total",
		Help:      "Total number of failed advisory pipeline stages.",
	}, []string{"stage", "error_type"})

	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coinpilot",
		Subsystem: "advisor",
		Name:      "tool_calls_total",
		Help:      "Total number of market data tool calls made by stages.",
	}, []string{"stage"})

	for _, collector := range []prometheus.Collector{
		requestDuration, requestTotal, stageDuration, stageFailures, toolCalls,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		stageDuration:   stageDuration,
		stageFailures:   stageFailures,
		toolCalls:       toolCalls,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveStage records the outcome of one pipeline stage.
func (c *Collector) ObserveStage(stage string, durationMs int64, toolCalls int, success bool, errorType string) {
	c.stageDuration.WithLabelValues(stage).Observe(float64(durationMs) / 1000)
	if toolCalls > 0 {
		c.toolCalls.WithLabelValues(stage).Add(float64(toolCalls))
	}
	if !success {
		if errorType == "" {
			errorType = "internal_error"
		}
		c.stageFailures.WithLabelValues(stage, errorType).Inc()
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
