package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCountsByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("add_task", ResultOK, 0.001)
	m.Observe("add_task", ResultOK, 0.001)
	m.Observe("add_task", "duplicate_record", 0.001)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Instructions.WithLabelValues("add_task", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instructions.WithLabelValues("add_task", "duplicate_record")))
}

func TestDepositGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.DepositLocked(100)
	m.DepositLocked(50)
	m.DepositRefunded(100)

	assert.Equal(t, 50.0, testutil.ToFloat64(m.Deposits))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("mark_task", ResultOK, 0)
		m.DepositLocked(1)
		m.DepositRefunded(1)
	})
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
