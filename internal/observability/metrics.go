package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	eventsProcessedTotal   *prometheus.CounterVec
	eventsDroppedTotal     *prometheus.CounterVec
	eventsFailedTotal      *prometheus.CounterVec
	eventHandlerSeconds    *prometheus.HistogramVec
	submissionsQueuedTotal prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors for the lifecycle
// dispatcher and the HTTP surface.
func RegisterMetrics() {
	registerOnce.Do(func() {
		eventsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_processed_total",
			Help: "Total number of lifecycle events handled to completion.",
		}, []string{"kind"})

		eventsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_dropped_total",
			Help: "Total number of lifecycle events dropped without retry.",
		}, []string{"kind", "reason"})

		eventsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_failed_total",
			Help: "Total number of lifecycle events that failed and were handed back for retry.",
		}, []string{"kind"})

		eventHandlerSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifecycle_event_handler_seconds",
			Help:    "Latency distribution of lifecycle event handler transactions.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"kind"})

		submissionsQueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_submissions_queued_total",
			Help: "Total number of submissions handed to the grading queue producer.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			eventsProcessedTotal,
			eventsDroppedTotal,
			eventsFailedTotal,
			eventHandlerSeconds,
			submissionsQueuedTotal,
			httpRequestsTotal,
			httpLatencySeconds,
		)
	})
}

// EventsProcessed exposes the counter for completed lifecycle events.
func EventsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsProcessedTotal
}

// EventsDropped exposes the counter for dropped lifecycle events.
func EventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsDroppedTotal
}

// EventsFailed exposes the counter for failed lifecycle events.
func EventsFailed() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsFailedTotal
}

// EventHandlerLatency exposes the handler latency histogram.
func EventHandlerLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return eventHandlerSeconds
}

// SubmissionsQueued exposes the counter for grading queue hand-offs.
func SubmissionsQueued() prometheus.Counter {
	RegisterMetrics()
	return submissionsQueuedTotal
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
