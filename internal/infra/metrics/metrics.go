package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicechat"

// Attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeEmpty     = "empty_body"
)

// ClientMetrics holds the collectors of the chat client.
// A nil *ClientMetrics is valid and records nothing.
type ClientMetrics struct {
	Attempts *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewClientMetrics creates the client collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "attempts_total",
			Help:      "Number of HTTP attempts made by the chat client, by operation, method, auth variant and outcome.",
		}, []string{"op", "method", "auth", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP round trips made by the chat client.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.Attempts, m.Duration)
	}

	return m
}

// ObserveAttempt counts one fallback attempt.
func (m *ClientMetrics) ObserveAttempt(op, method, auth, outcome string) {
	if m == nil {
		return
	}

	m.Attempts.WithLabelValues(op, method, auth, outcome).Inc()
}

// ObserveRequest records the latency of one round trip. A status of 0 means
// no response was received.
func (m *ClientMetrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}

	m.Duration.WithLabelValues(method, label).Observe(d.Seconds())
}

// ServerMetrics holds the collectors of the fake chat backend.
type ServerMetrics struct {
	Requests *prometheus.CounterVec
}

// NewServerMetrics creates the server collectors and registers them with reg.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fakeapi",
			Name:      "requests_total",
			Help:      "Number of requests served by the fake chat backend.",
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.Requests)
	}

	return m
}

// ObserveRequest counts one served request.
func (m *ServerMetrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}

	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	//nolint:exhaustruct
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
