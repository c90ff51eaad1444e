// Package metrics provides Prometheus metrics for the tutor gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AIRequestsTotal.
const (
	OutcomeBackend  = "backend"
	OutcomeFallback = "fallback"
)

var (
	// AIRequestsTotal counts AI requests by mode and how they were answered.
	// Labels: mode (chat, image, speech), outcome (backend, fallback)
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total AI requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// AIRequestDuration tracks end-to-end request latency including simulated fallback latency.
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mate",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Duration of AI requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	// PresenterTransitionsTotal counts published presenter status changes.
	// Labels: status (idle, preparing, listening, thinking, speaking)
	PresenterTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: "presenter",
			Name:      "transitions_total",
			Help:      "Total presenter status transitions by target status",
		},
		[]string{"status"},
	)

	// PresenterSessionActive is 1 while a presenter session is live.
	PresenterSessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mate",
			Subsystem: "presenter",
			Name:      "session_active",
			Help:      "Whether a presenter session is currently live (1) or not (0)",
		},
	)

	// TranscriptMessages tracks the number of messages in the conversation store.
	TranscriptMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mate",
			Subsystem: "conversation",
			Name:      "messages",
			Help:      "Number of messages currently held in the conversation store",
		},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
