package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	m.RecordRequest("/auth/login", "POST", 200, 5*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, 5*time.Millisecond)
	m.RecordError("/auth/refresh", "POST", "UNAUTHORIZED")
	m.RecordTransition(TransitionLogout, OutcomeRevokeFailed)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/auth/login", "POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/auth/refresh", "POST", "UNAUTHORIZED")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues(TransitionLogout, OutcomeRevokeFailed)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition(TransitionLogin, OutcomeSuccess)
	})
}
