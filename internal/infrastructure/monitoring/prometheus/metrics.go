// Package prometheus exposes the matching engine's operational metrics.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filament"

// Metrics holds every engine metric.  One instance per process, registered
// on its own registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// Blocking and scoring.
	PairsCompared   prometheus.Counter
	PoolTruncations prometheus.Counter
	FallbackBlocks  prometheus.Counter
	CasesProcessed  prometheus.Counter

	// Output.
	LeadsEmitted *prometheus.CounterVec

	// Enrichment providers.
	EnrichmentTimeouts *prometheus.CounterVec
	EnrichmentFailures *prometheus.CounterVec

	// Run lifecycle.
	RunDuration        prometheus.Histogram
	IndexBuildDuration prometheus.Histogram
	RunsTotal          *prometheus.CounterVec
}

// NewMetrics builds and registers the engine metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	m := &Metrics{
		registry: registry,
		PairsCompared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_compared_total",
			Help:      "Candidate pairs scored across all runs.",
		}),
		PoolTruncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_truncations_total",
			Help:      "Candidate pools truncated at the configured cap.",
		}),
		FallbackBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_blocks_total",
			Help:      "Remains cases blocked by demographics for lack of distinctive tokens.",
		}),
		CasesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_processed_total",
			Help:      "Remains cases fully processed.",
		}),
		LeadsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_emitted_total",
			Help:      "Leads surviving ranking and threshold, by priority band.",
		}, []string{"priority"}),
		EnrichmentTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_timeouts_total",
			Help:      "Enrichment signals dropped on the per-signal deadline.",
		}, []string{"provider"}),
		EnrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Enrichment signals dropped on provider error.",
		}, []string{"provider"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of complete matching runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
		IndexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Duration of rare-token index builds.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60},
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Matching runs by terminal state.",
		}, []string{"state"}),
	}

	registry.MustRegister(
		m.PairsCompared,
		m.PoolTruncations,
		m.FallbackBlocks,
		m.CasesProcessed,
		m.LeadsEmitted,
		m.EnrichmentTimeouts,
		m.EnrichmentFailures,
		m.RunDuration,
		m.IndexBuildDuration,
		m.RunsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
