package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentRoundTripper wraps next so every backend response increments
// runnerchat_http_responses_total. A nil next uses http.DefaultTransport.
func InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(HTTPResponsesTotal, next)
}

// WriteTextfile writes all metrics of the default registry to path in the
// node exporter textfile format. Short-lived commands use it to export
// what they recorded.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
