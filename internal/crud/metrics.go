package crud

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes used as the "outcome" label.
const (
	outcomeSuccess    = "success"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
	outcomeRejected   = "rejected"
)

// metrics holds the store collectors. A nil *metrics records nothing.
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

// newMetrics registers the store collectors on reg. Collectors already
// registered by another store are reused.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crud_operations_total",
				Help: "Total number of CRUD store operations by outcome",
			},
			[]string{"store", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crud_operation_duration_seconds",
				Help:    "CRUD store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store", "op"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crud_inflight_operations",
				Help: "Number of CRUD store operations currently in flight",
			},
			[]string{"store"},
		),
	}

	m.operations = register(reg, m.operations)
	m.duration = register(reg, m.duration)
	m.inFlight = register(reg, m.inFlight)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(store string, op Op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(store, op.String(), outcome).Inc()
	if outcome != outcomeRejected {
		m.duration.WithLabelValues(store, op.String()).Observe(d.Seconds())
	}
}

func (m *metrics) setInFlight(store string, n int) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(store).Set(float64(n))
}
