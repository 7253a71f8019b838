// Package metrics owns the service's Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "urnik"

var (
	// UpstreamRequests counts calls to the timetable API by operation and
	// result ("ok", "cache", "not_modified", "error").
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Requests made to the upstream timetable API.",
	}, []string{"operation", "result"})

	// LayoutSeconds measures merge+cluster+lane runs.
	LayoutSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_seconds",
		Help:      "Time spent laying out one timetable.",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	// Exports counts served exports by format.
	Exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Calendar and PDF exports served.",
	}, []string{"format", "result"})

	// IndicatorStreams is the number of open live indicator streams.
	IndicatorStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indicator_streams",
		Help:      "Open time indicator SSE streams.",
	})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		UpstreamRequests,
		LayoutSeconds,
		Exports,
		IndicatorStreams,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
