package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the attribution service.
type Metrics struct {
	// Engine metrics
	AttributionRequests   *prometheus.CounterVec
	ComputeLatency        *prometheus.HistogramVec
	TouchpointsProcessed  *prometheus.CounterVec
	SpendRecordsProcessed *prometheus.CounterVec
	MetadataFallbacks     *prometheus.CounterVec

	// Cache metrics
	ReportCacheRequests *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	RateLimitHits *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec
}

// NewMetrics creates all metrics and registers them on reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AttributionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_requests_total",
				Help:      "Attribution computations by model, level and outcome",
			},
			[]string{"model", "level", "status"},
		),
		ComputeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attribution_compute_seconds",
				Help:      "End-to-end attribution computation latency including store fetches",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"level"},
		),
		TouchpointsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_touchpoints_processed_total",
				Help:      "Touchpoints considered by the attribution selector",
			},
			[]string{"model"},
		),
		SpendRecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_spend_records_processed_total",
				Help:      "Spend records aggregated",
			},
			[]string{"level"},
		),
		MetadataFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_metadata_fallbacks_total",
				Help:      "Hierarchy nodes named by fallback because metadata was missing or failed",
			},
			[]string{"entity"},
		),
		ReportCacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_requests_total",
				Help:      "Report cache lookups by result",
			},
			[]string{"result"}, // hit, miss, error
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by path and status",
			},
			[]string{"path", "status"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),
		DBConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordAttribution records a finished attribution computation.
func (m *Metrics) RecordAttribution(model, level, status string, latency time.Duration) {
	m.AttributionRequests.WithLabelValues(model, level, status).Inc()
	m.ComputeLatency.WithLabelValues(level).Observe(latency.Seconds())
}

// RecordInputs records how many raw rows a computation processed.
func (m *Metrics) RecordInputs(model, level string, touchpoints, spendRecords int) {
	m.TouchpointsProcessed.WithLabelValues(model).Add(float64(touchpoints))
	m.SpendRecordsProcessed.WithLabelValues(level).Add(float64(spendRecords))
}

// RecordMetadataFallback records a hierarchy node named by fallback.
func (m *Metrics) RecordMetadataFallback(entity string) {
	m.MetadataFallbacks.WithLabelValues(entity).Inc()
}

// RecordCacheResult records a report cache lookup.
func (m *Metrics) RecordCacheResult(result string) {
	m.ReportCacheRequests.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(path string, status int) {
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}
