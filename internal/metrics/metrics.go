// Package metrics exposes prometheus collectors for the authorization engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const namespace = "authz"

// Set bundles the collectors one manager instance reports to.
// A nil *Set is valid and drops every observation, so callers never
// need to guard instrumentation sites.
type Set struct {
	decisions       *prometheus.CounterVec
	decisionSeconds prometheus.Histogram
	mutations       *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	auditDropped    prometheus.Counter
}

// New builds the collector set and registers it with reg
func New(reg prometheus.Registerer) (*Set, error) {
	s := &Set{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Authorization decisions by result.",
		}, []string{"result"}),
		decisionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time spent deciding one authorization request.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Grant and revoke operations by kind.",
		}, []string{"op"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Authorization decisions served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Authorization decisions that needed a full evaluation.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_dropped_total",
			Help:      "Audit records dropped because the buffer was full.",
		}),
	}

	var err error
	for _, c := range []prometheus.Collector{
		s.decisions, s.decisionSeconds, s.mutations, s.cacheHits, s.cacheMisses, s.auditDropped,
	} {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ObserveDecision records one finished authorization decision
func (s *Set) ObserveDecision(allowed bool, seconds float64) {
	if s == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	s.decisions.WithLabelValues(result).Inc()
	s.decisionSeconds.Observe(seconds)
}

// IncGrant counts one grant operation
func (s *Set) IncGrant() {
	if s == nil {
		return
	}
	s.mutations.WithLabelValues("grant").Inc()
}

// IncRevoke counts one revoke operation
func (s *Set) IncRevoke() {
	if s == nil {
		return
	}
	s.mutations.WithLabelValues("revoke").Inc()
}

// IncCacheHit counts one decision served from the cache
func (s *Set) IncCacheHit() {
	if s == nil {
		return
	}
	s.cacheHits.Inc()
}

// IncCacheMiss counts one decision that fell through the cache
func (s *Set) IncCacheMiss() {
	if s == nil {
		return
	}
	s.cacheMisses.Inc()
}

// IncAuditDropped counts one audit record lost to a full buffer
func (s *Set) IncAuditDropped() {
	if s == nil {
		return
	}
	s.auditDropped.Inc()
}
