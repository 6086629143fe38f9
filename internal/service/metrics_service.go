package service

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/classroomtools/conductledger/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for reporting.
type MetricsService struct {
	registry        *prometheus.Registry
	recomputeTotal  prometheus.Counter
	adjustmentTotal *prometheus.CounterVec
	orderTotal      *prometheus.CounterVec
	coinsGranted    prometheus.Counter
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	recomputeCount  uint64
	adjustmentCount uint64
	orderCount      uint64
	coinsTotal      uint64
	cacheHitCount   uint64
	cacheMissCount  uint64
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	recomputeTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conduct_recomputes_total",
		Help: "Total number of conduct record score recomputations",
	})

	adjustmentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conduct_adjustments_total",
		Help: "Total number of applied behavior adjustments",
	}, []string{"direction"})

	orderTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_orders_total",
		Help: "Total number of purchase orders by outcome",
	}, []string{"status"})

	coinsGranted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_coins_granted_total",
		Help: "Total coins credited through settlements",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	registry.MustRegister(recomputeTotal, adjustmentTotal, orderTotal, coinsGranted, cacheHitRatio, cacheHits, cacheMisses)

	return &MetricsService{
		registry:        registry,
		recomputeTotal:  recomputeTotal,
		adjustmentTotal: adjustmentTotal,
		orderTotal:      orderTotal,
		coinsGranted:    coinsGranted,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Registry exposes the collectors for the host process to scrape.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRecompute records n score recomputations.
func (m *MetricsService) ObserveRecompute(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recomputeTotal.Add(float64(n))
	atomic.AddUint64(&m.recomputeCount, uint64(n))
}

// ObserveAdjustment records one applied or removed adjustment.
func (m *MetricsService) ObserveAdjustment(delta int) {
	if m == nil {
		return
	}
	direction := "apply"
	if delta < 0 {
		direction = "remove"
	}
	m.adjustmentTotal.WithLabelValues(direction).Inc()
	atomic.AddUint64(&m.adjustmentCount, 1)
}

// ObserveOrder records an order lifecycle event.
func (m *MetricsService) ObserveOrder(status models.OrderStatus) {
	if m == nil {
		return
	}
	m.orderTotal.WithLabelValues(string(status)).Inc()
	atomic.AddUint64(&m.orderCount, 1)
}

// ObserveCoins records a settlement credit.
func (m *MetricsService) ObserveCoins(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.coinsGranted.Add(float64(amount))
	atomic.AddUint64(&m.coinsTotal, uint64(amount))
}

// RecordCacheOperation records cache hit/miss metrics and updates the
// hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// Snapshot returns aggregated metrics suitable for reports.
func (m *MetricsService) Snapshot() models.EngineMetrics {
	if m == nil {
		return models.EngineMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.EngineMetrics{
		Recomputes:    atomic.LoadUint64(&m.recomputeCount),
		Adjustments:   atomic.LoadUint64(&m.adjustmentCount),
		Orders:        atomic.LoadUint64(&m.orderCount),
		CoinsGranted:  atomic.LoadUint64(&m.coinsTotal),
		CacheHits:     hits,
		CacheMisses:   misses,
		CacheHitRatio: cacheRatio,
		GeneratedAt:   time.Now().UTC(),
	}
}
