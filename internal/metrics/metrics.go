// Package metrics exposes Prometheus instruments for the task program.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK = "ok"
)

// Metrics holds the program's instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Instructions counts instructions by name and result
	// ("ok" or a lowercased error code).
	Instructions *prometheus.CounterVec

	// Deposits tracks lamports currently locked in task deposits.
	Deposits prometheus.Gauge

	// Duration observes instruction latency.
	Duration *prometheus.HistogramVec
}

// New registers the program's instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Instructions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskstore",
			Name:      "instructions_total",
			Help:      "Total instructions by name and result",
		}, []string{"instruction", "result"}),
		Deposits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskstore",
			Name:      "deposits_lamports",
			Help:      "Lamports moved into task deposits by this process, net of refunds",
		}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskstore",
			Name:      "instruction_duration_seconds",
			Help:      "Instruction duration",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"instruction"}),
	}
}

// Observe records one finished instruction.
func (m *Metrics) Observe(instruction, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Instructions.WithLabelValues(instruction, result).Inc()
	m.Duration.WithLabelValues(instruction).Observe(seconds)
}

// DepositLocked records a deposit moving into a task.
func (m *Metrics) DepositLocked(lamports uint64) {
	if m == nil {
		return
	}
	m.Deposits.Add(float64(lamports))
}

// DepositRefunded records a deposit returned to its owner.
func (m *Metrics) DepositRefunded(lamports uint64) {
	if m == nil {
		return
	}
	m.Deposits.Sub(float64(lamports))
}
