package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session transitions counted by RecordTransition.
const (
	TransitionLogin         = "login"
	TransitionRegister      = "register"
	TransitionRefresh       = "refresh"
	TransitionLogout        = "logout"
	TransitionOAuthStart    = "oauth_start"
	TransitionOAuthCallback = "oauth_callback"
)

// Transition outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeRevokeFailed = "revoke_failed"
)

// Metrics holds Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Failed HTTP requests by route, method and error code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Session lifecycle transitions by outcome.",
		}, []string{"transition", "outcome"}),
	}
	reg.MustRegister(m.requests, m.errors, m.latency, m.transitions)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordTransition counts one session lifecycle transition.
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome).Inc()
}
