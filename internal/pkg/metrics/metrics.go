package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service counters. A nil *Metrics is a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	charges      *prometheus.CounterVec
	chargeAmount prometheus.Counter
	guards       *prometheus.CounterVec
	auditWrites  *prometheus.CounterVec
	maintenance  *prometheus.CounterVec
}

// New registers the counters on a fresh registry together with the Go and
// process collectors
func New(environment string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": "unionpass", "env": environment}

	m := &Metrics{
		Registry: registry,
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "unionpass_charges_total",
			Help:        "Point-of-sale charges by outcome code.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		chargeAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "unionpass_charged_amount_total",
			Help:        "Sum of successfully charged amounts.",
			ConstLabels: constLabels,
		}),
		guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "unionpass_gateway_decisions_total",
			Help:        "Security gateway decisions by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		auditWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "unionpass_audit_writes_total",
			Help:        "Audit log writes by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		maintenance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "unionpass_maintenance_purged_total",
			Help:        "Rows or keys purged by the maintenance job.",
			ConstLabels: constLabels,
		}, []string{"resource"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.charges,
		m.chargeAmount,
		m.guards,
		m.auditWrites,
		m.maintenance,
	)
	return m
}

func (m *Metrics) ObserveCharge(outcome string, amount float64) {
	if m == nil {
		return
	}
	m.charges.WithLabelValues(outcome).Inc()
	if outcome == "ok" && amount > 0 {
		m.chargeAmount.Add(amount)
	}
}

func (m *Metrics) ObserveGuard(reason string) {
	if m == nil {
		return
	}
	m.guards.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveAudit(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.auditWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePurge(resource string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.maintenance.WithLabelValues(resource).Add(float64(n))
}
