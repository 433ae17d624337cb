// Package metrics exposes the orchestrator's Prometheus collectors (spec
// §6): risk-cache hit/miss counters, per-strategy duration histograms and
// chunk-store operation counters, registered against an independent
// registry per instance so tests never collide on the global default
// registry, generalized from the teacher's observability/prometheus.go
// registry-per-call idiom.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles every metric the orchestrator records during a
// request, constructed once per process and passed down to the
// components that emit them.
type Collectors struct {
	registry *prometheus.Registry

	RiskCacheHits   prometheus.Counter
	RiskCacheMisses prometheus.Counter

	StrategyDuration *prometheus.HistogramVec
	StrategyOutcome  *prometheus.CounterVec

	ChunkStoreOps *prometheus.CounterVec
}

// New constructs a Collectors with its own registry and registers every
// metric against it.
func New() *Collectors {
	registry := prometheus.NewRegistry()

	c := &Collectors{
		registry: registry,
		RiskCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepreason",
			Subsystem: "risk",
			Name:      "cache_hits_total",
			Help:      "Risk score cache hits.",
		}),
		RiskCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepreason",
			Subsystem: "risk",
			Name:      "cache_misses_total",
			Help:      "Risk score cache misses.",
		}),
		StrategyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deepreason",
			Subsystem: "strategy",
			Name:      "duration_seconds",
			Help:      "Strategy executor wall-clock duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"strategy"}),
		StrategyOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deepreason",
			Subsystem: "strategy",
			Name:      "outcomes_total",
			Help:      "Strategy executions by final success/failure outcome.",
		}, []string{"strategy", "outcome"}),
		ChunkStoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deepreason",
			Subsystem: "chunkstore",
			Name:      "operations_total",
			Help:      "Chunk store operations by kind and backend.",
		}, []string{"op", "backend"}),
	}

	registry.MustRegister(
		c.RiskCacheHits, c.RiskCacheMisses,
		c.StrategyDuration, c.StrategyOutcome,
		c.ChunkStoreOps,
	)
	return c
}

// ObserveStrategy records one strategy execution's duration and outcome.
func (c *Collectors) ObserveStrategy(strategyName string, success bool, duration time.Duration) {
	c.StrategyDuration.WithLabelValues(strategyName).Observe(duration.Seconds())
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.StrategyOutcome.WithLabelValues(strategyName, outcome).Inc()
}

// ObserveChunkStoreOp increments the operation counter for op against backend.
func (c *Collectors) ObserveChunkStoreOp(op, backend string) {
	c.ChunkStoreOps.WithLabelValues(op, backend).Inc()
}

// RecordRiskCache increments the hit or miss counter.
func (c *Collectors) RecordRiskCache(hit bool) {
	if hit {
		c.RiskCacheHits.Inc()
		return
	}
	c.RiskCacheMisses.Inc()
}

// Handler returns the http.Handler that serves this instance's scrape
// endpoint, for wiring into `reasonctl serve-metrics`.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
