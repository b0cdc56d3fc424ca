package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts webhook deliveries by tenant and terminal outcome.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerbridge_webhook_outcomes_total",
		Help: "Webhook deliveries by tenant and terminal outcome.",
	}, []string{"tenant", "outcome"})
	registerer.MustRegister(outcomes)

	return &Metrics{outcomes: outcomes}
}

func (m *Metrics) ObserveOutcome(tenant string, outcome string) {
	m.outcomes.WithLabelValues(tenant, outcome).Inc()
}
