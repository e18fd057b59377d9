package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authz"

// Metrics holds the Prometheus collectors of the server.
// A nil *Metrics records nothing.
type Metrics struct {
	decisions        *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	conditionErrors  prometheus.Counter
	registered       prometheus.Counter
	removed          prometheus.Counter
	cacheLookups     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Authorisation decisions by outcome reason.",
		}, []string{"outcome"}),
		decisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time spent reaching an authorisation decision.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		conditionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "condition_errors_total",
			Help:      "Conditions that failed to evaluate and were treated as non-matching.",
		}),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_registered_total",
			Help:      "Statements stored.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_removed_total",
			Help:      "Statements removed.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_cache_lookups_total",
			Help:      "Statement cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}

	collectors := []prometheus.Collector{
		m.decisions, m.decisionDuration, m.conditionErrors,
		m.registered, m.removed, m.cacheLookups, m.httpRequests,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordDecision counts a decision and observes how long it took
func (m *Metrics) RecordDecision(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
	m.decisionDuration.Observe(elapsed.Seconds())
}

// RecordConditionError counts a condition that could not be evaluated
func (m *Metrics) RecordConditionError() {
	if m == nil {
		return
	}
	m.conditionErrors.Inc()
}

// RecordRegistered counts stored statements
func (m *Metrics) RecordRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Add(float64(n))
}

// RecordRemoved counts a removed statement
func (m *Metrics) RecordRemoved() {
	if m == nil {
		return
	}
	m.removed.Inc()
}

// RecordCacheLookup counts a statement cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest counts a served HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
