package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	progressTransitions *prometheus.CounterVec
	reminderEventsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arka_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arka_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arka_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		progressTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arka_progress_transitions_total",
			Help: "Progress state transitions applied, labelled by resulting state.",
		}, []string{"transition"})

		reminderEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arka_reminder_events_total",
			Help: "Reminder events dispatched for struggling students.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, progressTransitions, reminderEventsTotal)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ProgressTransitions exposes the counter for state-machine transitions.
func ProgressTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return progressTransitions
}

// ReminderEvents exposes the counter for dispatched reminder events.
func ReminderEvents() prometheus.Counter {
	RegisterMetrics()
	return reminderEventsTotal
}
