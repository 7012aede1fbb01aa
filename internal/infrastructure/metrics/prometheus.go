package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	// Prometheus metrics
	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	grpcRequests     *prometheus.CounterVec
	grpcDuration     *prometheus.HistogramVec
	grpcErrors       *prometheus.CounterVec
	widgetDispatches *prometheus.CounterVec
	catalogChanges   *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter registered with reg.
// A nil reg uses the default registerer.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	// Cache counters are read from the cache itself on every scrape
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "riskmap_catalog_cache_hits_total",
		Help: "Total number of catalog cache hits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "riskmap_catalog_cache_misses_total",
		Help: "Total number of catalog cache misses",
	}, func() float64 { return float64(collector.GetCacheMetrics().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "riskmap_catalog_cache_evictions_total",
		Help: "Total number of catalog cache evictions due to memory limits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Evictions) })

	return &PrometheusExporter{
		collector: collector,
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskmap_catalog_cache_hit_rate",
			Help: "Current catalog cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskmap_catalog_cache_keys_current",
			Help: "Current number of keys in the catalog cache",
		}),
		cacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskmap_catalog_cache_memory_bytes",
			Help: "Current estimated memory usage of the catalog cache in bytes",
		}),
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskmap_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskmap_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskmap_grpc_errors_total",
				Help: "Total number of gRPC errors",
			},
			[]string{"method"},
		),
		widgetDispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskmap_widget_dispatches_total",
				Help: "Total number of widget registrations by page kind",
			},
			[]string{"kind"},
		),
		catalogChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskmap_catalog_changes_total",
				Help: "Total number of catalog change notifications by module",
			},
			[]string{"module"},
		),
	}
}

// Update updates Gauge metrics from the collector.
// Counters are updated via interceptor, so only update gauges here.
// This should be called periodically (e.g., every 10 seconds).
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(method string) {
	e.grpcErrors.WithLabelValues(method).Inc()
}

// RecordDispatch records a widget dispatch in Prometheus.
func (e *PrometheusExporter) RecordDispatch(kind string) {
	e.widgetDispatches.WithLabelValues(kind).Inc()
}

// RecordCatalogChange records a catalog change in Prometheus.
func (e *PrometheusExporter) RecordCatalogChange(module string) {
	e.catalogChanges.WithLabelValues(module).Inc()
}

// Recorder records domain events to the collector and, when set, the exporter.
type Recorder struct {
	Collector *Collector
	Exporter  *PrometheusExporter
}

// RecordDispatch records a widget dispatch for a page kind.
func (r *Recorder) RecordDispatch(kind string) {
	if r == nil {
		return
	}
	if r.Collector != nil {
		r.Collector.RecordDispatch(kind)
	}
	if r.Exporter != nil {
		r.Exporter.RecordDispatch(kind)
	}
}

// RecordCatalogChange records a catalog change notification for a module.
func (r *Recorder) RecordCatalogChange(module string) {
	if r == nil {
		return
	}
	if r.Collector != nil {
		r.Collector.RecordCatalogChange(module)
	}
	if r.Exporter != nil {
		r.Exporter.RecordCatalogChange(module)
	}
}
