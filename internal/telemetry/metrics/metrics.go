// Package metrics exposes the engine's Prometheus collectors on a
// private registry: match duration, rule outcomes, extractor failures,
// dispatch and retry counters, and per-actor mailbox depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry aggregates every collector the engine emits, namespaced
// "tornado". It owns a private prometheus.Registry rather than using
// the global DefaultRegisterer, so an embedding process can mount it
// wherever it likes (or not at all).
type Registry struct {
	registry *prometheus.Registry

	MatchDuration     *prometheus.HistogramVec
	RuleMatchTotal    *prometheus.CounterVec
	ExtractorFailures *prometheus.CounterVec
	DispatchTotal     *prometheus.CounterVec
	RetryAttempts     *prometheus.CounterVec
	RetryBackoff      *prometheus.HistogramVec
	MailboxDepth      *prometheus.GaugeVec
}

// New constructs a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		registry: reg,
		MatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tornado",
			Subsystem: "matcher",
			Name:      "match_duration_seconds",
			Help:      "Time to process one event through the matcher tree.",
			Buckets:   prometheus.DefBuckets,
		}, nil),
		RuleMatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tornado",
			Subsystem: "matcher",
			Name:      "rule_match_total",
			Help:      "Count of rule evaluations by ruleset path, rule name, and outcome status.",
		}, []string{"ruleset_path", "rule", "status"}),
		ExtractorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tornado",
			Subsystem: "matcher",
			Name:      "extractor_failures_total",
			Help:      "Count of extractor evaluations that found no match, aborting their rule.",
		}, []string{"ruleset_path", "rule", "extractor"}),
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tornado",
			Subsystem: "dispatcher",
			Name:      "dispatch_total",
			Help:      "Count of actions published to the event bus by action id.",
		}, []string{"action_id"}),
		RetryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tornado",
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Count of delivered actions by action id and final outcome, after retries and the circuit breaker.",
		}, []string{"action_id", "outcome"}),
		RetryBackoff: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tornado",
			Subsystem: "retry",
			Name:      "backoff_seconds",
			Help:      "Backoff delay observed before a retry attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"action_id"}),
		MailboxDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tornado",
			Subsystem: "actorsystem",
			Name:      "mailbox_depth",
			Help:      "Current number of queued messages per actor mailbox.",
		}, []string{"actor"}),
	}
	return r
}

// Handler exposes the registry's collectors for an embedding process to
// mount at its own admin/metrics path; the core never listens itself.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
