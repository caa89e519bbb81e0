// Package metrics exposes the subsystem's counters as Prometheus collectors.
// All methods are safe on a nil *Collectors so components can run without a registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-inference-pipeline/internal/model"
)

// Outcome label values
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeCancelled   = "cancelled"
)

const namespace = "inference"

// Collectors holds every registered metric
type Collectors struct {
	chunksTotal            *prometheus.CounterVec
	itemsTotal             *prometheus.CounterVec
	retriesTotal           prometheus.Counter
	breakerTripsTotal      prometheus.Counter
	breakerOpen            prometheus.Gauge
	chunkDuration          prometheus.Histogram
	cpuUsage               prometheus.Gauge
	memoryUsage            prometheus.Gauge
	loadAverage            prometheus.Gauge
	recommendedConcurrency prometheus.Gauge
	alertsTotal            *prometheus.CounterVec
}

// NewCollectors creates the collectors and registers them with registry.
func NewCollectors(registry prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		chunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_total",
			Help:      "Total number of chunks resolved, by outcome",
		}, []string{"outcome"}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "items_total",
			Help:      "Total number of work items resolved, by outcome",
		}, []string{"outcome"}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "retries_total",
			Help:      "Total number of chunk retries",
		}),
		breakerTripsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of times the circuit breaker opened",
		}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "circuit_breaker_open",
			Help:      "1 while the circuit breaker is open",
		}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunk_duration_seconds",
			Help:      "Wall-clock time to resolve a chunk including retries",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "cpu_usage_ratio",
			Help:      "Latest sampled CPU utilisation",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "memory_usage_ratio",
			Help:      "Latest sampled memory utilisation",
		}),
		loadAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "load_average",
			Help:      "Latest sampled 1-minute load average",
		}),
		recommendedConcurrency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "recommended_concurrency",
			Help:      "Concurrency recommended from the latest sample",
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Total number of alerts created",
		}, []string{"severity", "source"}),
	}

	for _, collector := range []prometheus.Collector{
		c.chunksTotal, c.itemsTotal, c.retriesTotal, c.breakerTripsTotal, c.breakerOpen,
		c.chunkDuration, c.cpuUsage, c.memoryUsage, c.loadAverage, c.recommendedConcurrency,
		c.alertsTotal,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return c, nil
}

// ObserveChunk records a resolved chunk
func (c *Collectors) ObserveChunk(outcome string, items int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.chunksTotal.WithLabelValues(outcome).Inc()
	c.itemsTotal.WithLabelValues(outcome).Add(float64(items))
	c.chunkDuration.Observe(elapsed.Seconds())
}

// IncRetries records one chunk retry
func (c *Collectors) IncRetries() {
	if c == nil {
		return
	}
	c.retriesTotal.Inc()
}

// SetBreakerOpen mirrors the breaker state; a transition to open counts a trip.
func (c *Collectors) SetBreakerOpen(open bool) {
	if c == nil {
		return
	}
	if open {
		c.breakerTripsTotal.Inc()
		c.breakerOpen.Set(1)
		return
	}
	c.breakerOpen.Set(0)
}

// ObserveSystem mirrors the latest resource sample
func (c *Collectors) ObserveSystem(m model.SystemMetrics, recommended int) {
	if c == nil {
		return
	}
	c.cpuUsage.Set(m.CPUUsage)
	c.memoryUsage.Set(m.MemoryUsage)
	c.loadAverage.Set(m.LoadAverage)
	c.recommendedConcurrency.Set(float64(recommended))
}

// IncAlert records a created alert
func (c *Collectors) IncAlert(severity model.AlertSeverity, source model.AlertSource) {
	if c == nil {
		return
	}
	c.alertsTotal.WithLabelValues(string(severity), string(source)).Inc()
}
