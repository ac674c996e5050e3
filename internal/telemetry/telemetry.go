// Package telemetry holds the Prometheus collectors for the answering
// pipeline. One Metrics value is shared by the engine, the fan-out scheduler
// and the HTTP server, which exposes the registry on /metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// Metrics bundles the pipeline collectors with their registry.
type Metrics struct {
	Registry *prometheus.Registry

	sourceRequests *prometheus.CounterVec
	sourceLatency  *prometheus.HistogramVec
	answers        *prometheus.CounterVec
	fanoutDuration prometheus.Histogram
	cacheHits      prometheus.Counter
	learnedHits    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oraculo",
			Name:      "source_requests_total",
			Help:      "Fetches per knowledge source and outcome.",
		}, []string{"source", "outcome"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oraculo",
			Name:      "source_latency_seconds",
			Help:      "Fetch latency per knowledge source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oraculo",
			Name:      "answers_total",
			Help:      "Answers served per resolution strategy.",
		}, []string{"strategy"}),
		fanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oraculo",
			Name:      "fanout_duration_seconds",
			Help:      "Wall time of the source fan-out per question.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oraculo",
			Name:      "cache_hits_total",
			Help:      "Questions answered from the in-process cache.",
		}),
		learnedHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oraculo",
			Name:      "learned_hits_total",
			Help:      "Questions answered from the learned-answer store.",
		}),
	}
	m.Registry.MustRegister(m.sourceRequests, m.sourceLatency, m.answers, m.fanoutDuration, m.cacheHits, m.learnedHits)
	return m
}

// Resolution strategies reported on answers_total.
const (
	StrategyCache   = "cache"
	StrategyLearned = "learned"
	StrategyFused   = "fused"
	StrategyNone    = "none"
)

func (m *Metrics) ObserveSource(source sources.Name, success bool, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.sourceRequests.WithLabelValues(string(source), outcome).Inc()
	m.sourceLatency.WithLabelValues(string(source)).Observe(latency.Seconds())
}

func (m *Metrics) ObserveAnswer(strategy string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveFanout(d time.Duration) {
	if m == nil {
		return
	}
	m.fanoutDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) ObserveLearnedHit() {
	if m == nil {
		return
	}
	m.learnedHits.Inc()
}
