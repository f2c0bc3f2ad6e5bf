// Package metrics exposes Prometheus collectors for the enrichment service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal         *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	cacheEventsTotal     *prometheus.CounterVec
	batchItemsTotal      *prometheus.CounterVec
	crawlBudgetExceeded  prometheus.Counter
	activeBatchWorkers   prometheus.Gauge
	rateLimitDelaySecs   prometheus.Histogram

	once sync.Once
)

func register() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "webscout_fetches_total",
			Help: "Outbound fetches by outcome (ok, timeout, network, status).",
		}, []string{"outcome"})
		fetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webscout_fetch_duration_seconds",
			Help:    "Outbound fetch latency by purpose (seed, candidate, proxy, light).",
			Buckets: prometheus.DefBuckets,
		}, []string{"purpose"})
		cacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "webscout_cache_events_total",
			Help: "Cache lookups by cache (proxy, enrich) and event (hit, miss, stale_hit, not_modified).",
		}, []string{"cache", "event"})
		batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "webscout_batch_items_total",
			Help: "Batch items reaching a terminal state, by status.",
		}, []string{"status"})
		crawlBudgetExceeded = promauto.NewCounter(prometheus.CounterOpts{
			Name: "webscout_crawl_budget_exceeded_total",
			Help: "Crawls that hit the wall-clock budget before candidate fetches.",
		})
		activeBatchWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "webscout_active_batch_workers",
			Help: "Batch orchestrator workers currently running.",
		})
		rateLimitDelaySecs = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "webscout_rate_limit_delay_seconds",
			Help:    "Delay introduced by the per-host outbound rate limiter.",
			Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5},
		})
	})
}

// ObserveFetch records one outbound fetch outcome and latency.
func ObserveFetch(purpose, outcome string, duration time.Duration) {
	register()
	fetchesTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.WithLabelValues(purpose).Observe(duration.Seconds())
}

// ObserveCache records a cache lookup event.
func ObserveCache(cache, event string) {
	register()
	cacheEventsTotal.WithLabelValues(cache, event).Inc()
}

// ObserveBatchItem records a batch item reaching a terminal status.
func ObserveBatchItem(status string) {
	register()
	batchItemsTotal.WithLabelValues(status).Inc()
}

// ObserveBudgetExceeded records a crawl cut short by its budget.
func ObserveBudgetExceeded() {
	register()
	crawlBudgetExceeded.Inc()
}

// WorkerStarted increments the active worker gauge.
func WorkerStarted() {
	register()
	activeBatchWorkers.Inc()
}

// WorkerStopped decrements the active worker gauge.
func WorkerStopped() {
	register()
	activeBatchWorkers.Dec()
}

// ObserveRateLimitDelay records time spent waiting on the outbound limiter.
func ObserveRateLimitDelay(duration time.Duration) {
	register()
	rateLimitDelaySecs.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	register()
	return promhttp.Handler()
}
