// Package metrics exposes Prometheus counters for migration reconciliation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sqlbridge"

// Metrics holds the reconciliation counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Verified prometheus.Counter
	Applied  prometheus.Counter
	Rejected prometheus.Counter
	Failed   prometheus.Counter
}

// New creates the counters and registers them with reg.
// A nil reg creates unregistered counters, which is handy in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Verified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_verified_total",
			Help:      "Applied migrations whose name and hash matched the ledger.",
		}),
		Applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_applied_total",
			Help:      "New migrations executed and recorded in the ledger.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_rejected_total",
			Help:      "Reconciliations rejected because the ledger and the migration list diverged.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_failures_total",
			Help:      "New migrations whose SQL or ledger insert failed.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Verified, m.Applied, m.Rejected, m.Failed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncVerified records one verified migration.
func (m *Metrics) IncVerified() {
	if m != nil {
		m.Verified.Inc()
	}
}

// IncApplied records one applied migration.
func (m *Metrics) IncApplied() {
	if m != nil {
		m.Applied.Inc()
	}
}

// IncRejected records one rejected reconciliation.
func (m *Metrics) IncRejected() {
	if m != nil {
		m.Rejected.Inc()
	}
}

// IncFailed records one failed migration.
func (m *Metrics) IncFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}
