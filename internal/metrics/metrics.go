// Package metrics exposes Prometheus collectors for remote sync and the
// offline cache. A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "flexcoach"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics groups the collectors.
type Metrics struct {
	syncLegs     *prometheus.CounterVec
	cacheFlushes *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncLegs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_legs_total",
			Help:      "Remote write legs by leg name and outcome.",
		}, []string{"leg", "outcome"}),
		cacheFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_flushes_total",
			Help:      "Offline cache snapshot flushes by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Full entity refreshes by the source that won.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.syncLegs, m.cacheFlushes, m.refreshes)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}

// ObserveLeg counts a settled remote leg.
func (m *Metrics) ObserveLeg(leg string, err error) {
	if m == nil {
		return
	}
	m.syncLegs.WithLabelValues(leg, outcome(err)).Inc()
}

// ObserveSkipped counts a leg not attempted because the remote is not ready.
func (m *Metrics) ObserveSkipped(leg string) {
	if m == nil {
		return
	}
	m.syncLegs.WithLabelValues(leg, OutcomeSkipped).Inc()
}

// ObserveFlush counts a cache flush.
func (m *Metrics) ObserveFlush(err error) {
	if m == nil {
		return
	}
	m.cacheFlushes.WithLabelValues(outcome(err)).Inc()
}

// ObserveRefresh counts a refresh served from source ("remote" or "cache").
func (m *Metrics) ObserveRefresh(source string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(source).Inc()
}
