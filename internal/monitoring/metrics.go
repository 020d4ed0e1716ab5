package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for DQI analyses.
type Metrics struct {
	registry *prometheus.Registry

	Analyses           *prometheus.CounterVec
	HardFails          *prometheus.CounterVec
	NarrativeFallbacks prometheus.Counter
	MarketFallbacks    prometheus.Counter
	Failures           prometheus.Counter
	Duration           prometheus.Histogram
}

// NewMetrics registers the DQI instruments on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dqi",
			Name:      "analyses_total",
			Help:      "Completed analyses by rating.",
		}, []string{"rating"}),
		HardFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dqi",
			Name:      "hard_fails_total",
			Help:      "Hard-fail safeguards triggered, by pillar.",
		}, []string{"pillar"}),
		NarrativeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dqi",
			Name:      "narrative_fallbacks_total",
			Help:      "Analyses that used the templated narrative.",
		}),
		MarketFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dqi",
			Name:      "market_fallbacks_total",
			Help:      "Analyses that scored on sector-default market data.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dqi",
			Name:      "analysis_failures_total",
			Help:      "Analyses rejected with an error.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dqi",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	m.registry.MustRegister(m.Analyses, m.HardFails, m.NarrativeFallbacks, m.MarketFallbacks, m.Failures, m.Duration)
	return m
}

// Registry exposes the underlying registry for gatherers and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(e event) {
	if m == nil {
		return
	}
	if e.failed {
		m.Failures.Inc()
		return
	}
	m.Analyses.WithLabelValues(e.rating).Inc()
	for _, p := range e.hardFailPillars {
		m.HardFails.WithLabelValues(p).Inc()
	}
	if e.narrativeFallback {
		m.NarrativeFallbacks.Inc()
	}
	if e.marketFallback {
		m.MarketFallbacks.Inc()
	}
	m.Duration.Observe(e.duration.Seconds())
}
