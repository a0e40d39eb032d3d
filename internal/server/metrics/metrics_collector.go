// Package metrics exposes the daemon's Prometheus counters behind a thin
// collector facade so callers never touch metric vectors directly.
package metrics

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MetricsCollector is the logging facade over PrometheusMetrics.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

func NewMetricsCollector(prometheusMetrics *PrometheusMetrics, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: prometheusMetrics,
		logger:     logger,
	}
}

func (mc *MetricsCollector) RecordRequest(slug, status string, duration time.Duration) {
	mc.prometheus.RecordRequest(slug, status, duration)
	mc.logger.Debug("Request recorded",
		zap.String("slug", slug),
		zap.String("status", status),
		zap.Duration("duration", duration))
}

func (mc *MetricsCollector) RequestStarted() {
	mc.prometheus.IncActiveRequests()
}

func (mc *MetricsCollector) RequestFinished() {
	mc.prometheus.DecActiveRequests()
}

func (mc *MetricsCollector) RecordBuild(slug string, runtime float64, numQueries int64) {
	mc.prometheus.RecordBuild(slug, runtime, numQueries)
	mc.logger.Debug("Build recorded",
		zap.String("slug", slug),
		zap.Float64("runtime", runtime),
		zap.Int64("num_queries", numQueries))
}

func (mc *MetricsCollector) RecordIndexCacheHit(slug string) {
	mc.prometheus.RecordIndexCacheHit(slug)
}

func (mc *MetricsCollector) RecordIndexCacheMiss(slug string) {
	mc.prometheus.RecordIndexCacheMiss(slug)
}

// RecordTruncation satisfies indexer.TruncationRecorder.
func (mc *MetricsCollector) RecordTruncation(slug, category string) {
	mc.prometheus.RecordTruncation(slug, category)
	mc.logger.Warn("Sitemap index truncated",
		zap.String("slug", slug),
		zap.String("category", category))
}

func (mc *MetricsCollector) RecordInvalidation(slug string) {
	mc.prometheus.RecordInvalidation(slug)
	mc.logger.Debug("Invalidation recorded", zap.String("slug", slug))
}

func (mc *MetricsCollector) RecordPing(slug, code string) {
	mc.prometheus.RecordPing(slug, code)
	mc.logger.Debug("Ping recorded",
		zap.String("slug", slug),
		zap.String("code", code))
}

// ServeHTTP serves the Prometheus exposition endpoint.
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
