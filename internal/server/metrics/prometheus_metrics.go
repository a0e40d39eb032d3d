package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics holds the daemon's operator-visible counters.
type PrometheusMetrics struct {
	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	// Build metrics
	buildDuration *prometheus.HistogramVec
	buildQueries  *prometheus.HistogramVec

	// Index metrics
	indexCacheHitsTotal   *prometheus.CounterVec
	indexCacheMissesTotal *prometheus.CounterVec
	indexCacheHitRatio    *prometheus.GaugeVec
	truncationsTotal      *prometheus.CounterVec

	// Control plane metrics
	invalidationsTotal *prometheus.CounterVec
	pingsTotal         *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of sitemap requests processed",
		},
		[]string{"slug", "status"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time taken to serve sitemap requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"slug", "status"},
	)

	pm.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of requests currently being served",
		},
	)

	pm.buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Time taken to build one sitemap document",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"slug"},
	)

	pm.buildQueries = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "queries",
			Help:      "Content store queries issued per document build",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"slug"},
	)

	pm.indexCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "cache_hits_total",
			Help:      "Index builds answered from the cached blob",
		},
		[]string{"slug"},
	)

	pm.indexCacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "cache_misses_total",
			Help:      "Index builds that had to recount the content",
		},
		[]string{"slug"},
	)

	pm.indexCacheHitRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "cache_hit_ratio",
			Help:      "Index cache hit ratio (0-1) per slug",
		},
		[]string{"slug"},
	)

	pm.truncationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "truncations_total",
			Help:      "Categories truncated by the total sitemap file cap",
		},
		[]string{"slug", "category"},
	)

	pm.invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cached data flushes per slug",
		},
		[]string{"slug"},
	)

	pm.pingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ping",
			Name:      "pings_total",
			Help:      "Search engine ping rounds by resulting state code",
		},
		[]string{"slug", "code"},
	)

	registerer.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.activeRequests,
		pm.buildDuration,
		pm.buildQueries,
		pm.indexCacheHitsTotal,
		pm.indexCacheMissesTotal,
		pm.indexCacheHitRatio,
		pm.truncationsTotal,
		pm.invalidationsTotal,
		pm.pingsTotal,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Debug("Prometheus metrics initialized")
	return pm
}

func (pm *PrometheusMetrics) RecordRequest(slug, status string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(slug, status).Inc()
	pm.requestDuration.WithLabelValues(slug, status).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

func (pm *PrometheusMetrics) RecordBuild(slug string, runtime float64, numQueries int64) {
	pm.buildDuration.WithLabelValues(slug).Observe(runtime)
	pm.buildQueries.WithLabelValues(slug).Observe(float64(numQueries))
}

func (pm *PrometheusMetrics) RecordIndexCacheHit(slug string) {
	pm.indexCacheHitsTotal.WithLabelValues(slug).Inc()
	pm.updateIndexCacheHitRatio(slug)
}

func (pm *PrometheusMetrics) RecordIndexCacheMiss(slug string) {
	pm.indexCacheMissesTotal.WithLabelValues(slug).Inc()
	pm.updateIndexCacheHitRatio(slug)
}

func (pm *PrometheusMetrics) RecordTruncation(slug, category string) {
	pm.truncationsTotal.WithLabelValues(slug, category).Inc()
}

func (pm *PrometheusMetrics) RecordInvalidation(slug string) {
	pm.invalidationsTotal.WithLabelValues(slug).Inc()
}

func (pm *PrometheusMetrics) RecordPing(slug, code string) {
	pm.pingsTotal.WithLabelValues(slug, code).Inc()
}

// ServeHTTP serves the Prometheus exposition endpoint.
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}

func (pm *PrometheusMetrics) updateIndexCacheHitRatio(slug string) {
	hits := pm.getCounterValue(pm.indexCacheHitsTotal.WithLabelValues(slug))
	misses := pm.getCounterValue(pm.indexCacheMissesTotal.WithLabelValues(slug))

	if total := hits + misses; total > 0 {
		pm.indexCacheHitRatio.WithLabelValues(slug).Set(hits / total)
	}
}

// getCounterValue reads a counter's current value through the metric DTO.
func (pm *PrometheusMetrics) getCounterValue(counter prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		pm.logger.Warn("Failed to read counter value", zap.Error(err))
		return 0
	}
	return metric.GetCounter().GetValue()
}
