// Package observability provides Prometheus metrics for the runnerchat
// client: request outcomes, latency, streaming progress and token usage.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/runnerchat/pkg/api"
)

// Request modes used as the "mode" label.
const (
	ModeComplete = "complete"
	ModeStream   = "stream"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts chat completion calls by mode, model, and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerchat_requests_total",
			Help: "Chat completion requests",
		},
		[]string{"mode", "model", "status"},
	)

	// RequestDuration records the time from sending a request until the
	// answer is complete (blocking) or the stream is closed (streaming).
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runnerchat_request_duration_seconds",
			Help:    "Chat completion duration",
			Buckets: LLMBuckets,
		},
		[]string{"mode", "model"},
	)

	// StreamsActive tracks the number of open streams.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runnerchat_streams_active",
			Help: "Open streams",
		},
	)

	// StreamFragmentsTotal counts non-empty text fragments received.
	StreamFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerchat_stream_fragments_total",
			Help: "Streamed text fragments",
		},
		[]string{"model"},
	)

	// TimeToFirstFragment records the latency until the first fragment.
	TimeToFirstFragment = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runnerchat_time_to_first_fragment_seconds",
			Help:    "Time to first streamed fragment",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// TokensTotal counts tokens reported by blocking completions by
	// direction (prompt/completion). Streams report no usage.
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerchat_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// HTTPResponsesTotal counts backend HTTP responses by status code and method.
	HTTPResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerchat_http_responses_total",
			Help: "Backend HTTP responses",
		},
		[]string{"code", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamsActive,
		StreamFragmentsTotal,
		TimeToFirstFragment,
		TokensTotal,
		HTTPResponsesTotal,
	)
}

// StatusLabel maps an error to the "status" label: "ok" for nil, the
// api.ErrorType for *api.APIError, "error" otherwise.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "error"
}

// ObserveRequest records the outcome and duration of one call.
func ObserveRequest(mode, model string, err error, start time.Time) {
	RequestsTotal.WithLabelValues(mode, model, StatusLabel(err)).Inc()
	RequestDuration.WithLabelValues(mode, model).Observe(time.Since(start).Seconds())
}

// ObserveUsage records token usage of a blocking completion.
func ObserveUsage(model string, u api.Usage) {
	TokensTotal.WithLabelValues(model, "prompt").Add(float64(u.PromptTokens))
	TokensTotal.WithLabelValues(model, "completion").Add(float64(u.CompletionTokens))
}
