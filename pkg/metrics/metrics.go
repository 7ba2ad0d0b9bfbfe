// Package metrics exposes the advisor's Prometheus instrumentation
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Suggestion metrics
	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scaling_advisor_suggestions_total",
			Help: "Total number of suggestions returned, by source",
		},
		[]string{"source"},
	)

	SuggestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scaling_advisor_suggestion_duration_seconds",
			Help:    "End-to-end suggestion latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"source"},
	)

	DataAvailabilityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scaling_advisor_data_availability_total",
			Help: "Data availability classifications",
		},
		[]string{"availability"},
	)

	// Orchestration loop metrics
	LoopOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scaling_advisor_loop_outcomes_total",
			Help: "Terminal states of the reasoning loop",
		},
		[]string{"backend", "state"},
	)

	LoopRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scaling_advisor_loop_rounds",
			Help:    "Rounds consumed per reasoning loop",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		},
	)

	ToolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scaling_advisor_tool_executions_total",
			Help: "Tool calls executed on behalf of the reasoning backend",
		},
		[]string{"tool", "status"},
	)

	ReasoningRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scaling_advisor_reasoning_request_duration_seconds",
			Help:    "Reasoning backend request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"backend"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scaling_advisor_http_requests_total",
			Help: "HTTP requests handled by the suggestion router",
		},
		[]string{"path", "code"},
	)
)

// Tool execution statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)
