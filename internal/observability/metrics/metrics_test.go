package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSubmission("success")
	m.ObserveSubmission("success")
	m.ObserveSubmission("error")
	m.ObserveCheckout("order_created")
	m.ObserveUpstream("booking_store", "201", 0.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("order_created")))

	count, err := testutil.GatherAndCount(reg, "estetica_booking_upstream_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBookingMetricsDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBookingMetrics(reg)
	assert.Panics(t, func() { NewBookingMetrics(reg) })
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveSubmission("success")
	m.ObserveCheckout("handoff_failed")
	m.ObserveUpstream("payment_key", "transport_error", 0.1)
}
