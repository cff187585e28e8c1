// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCallDuration tracks the latency of a single provider call.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM provider call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "flow", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ChatSendsTotal counts send pipeline runs by mode and outcome.
	ChatSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Chat send pipeline runs",
		},
		[]string{"mode", "audience", "outcome"},
	)

	// ChatLimitRejections counts sends refused because the daily quota was used up.
	ChatLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_limit_rejections_total",
			Help: "Sends rejected by the daily chat limit",
		},
		[]string{"audience"},
	)

	// GuestQuotasActive tracks guest quota entries held in memory.
	GuestQuotasActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_quotas_active",
			Help: "Guest chat limits tracked in memory",
		},
	)

	// UploadsTotal counts image uploads by host and status.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Image uploads",
		},
		[]string{"host", "status"},
	)

	// EventsPublished counts events published to the event stream.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published to JetStream",
		},
		[]string{"type", "status"},
	)

	// EventBusConnected is 1 while the NATS connection is up.
	EventBusConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_bus_connected",
			Help: "Whether the NATS event bus connection is up",
		},
	)

	// EventBusReconnects counts NATS reconnections.
	EventBusReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_reconnects_total",
			Help: "NATS reconnections since start",
		},
	)

	// SessionsSaved counts persisted chat sessions.
	SessionsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_saved_total",
			Help: "Chat sessions written to the store",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for a provider call.
func RecordLLMCall(provider, flow, status string, duration float64, model string, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, flow, status).Observe(duration)
	if model == "" {
		return
	}
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordSend records the outcome of one send pipeline run.
func RecordSend(mode, audience, outcome string) {
	ChatSendsTotal.WithLabelValues(mode, audience, outcome).Inc()
}

// RecordUpload records an image upload attempt.
func RecordUpload(host, status string) {
	UploadsTotal.WithLabelValues(host, status).Inc()
}
