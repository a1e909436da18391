// Package metrics provides Prometheus metrics for content validation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "content_collections"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Validation metrics
	ValidationsTotal *prometheus.CounterVec
	FieldErrors      *prometheus.CounterVec
	CheckDuration    prometheus.Histogram
	DocumentsChecked prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	// Import metrics
	ImportRecords *prometheus.CounterVec
	JobsActive    prometheus.Gauge

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Validation metrics
		ValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of documents validated",
		}, []string{"collection", "result"}),
		FieldErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_errors_total",
			Help:      "Total number of field constraint violations",
		}, []string{"collection", "code"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of collection-wide checks in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		DocumentsChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_checked_total",
			Help:      "Total number of documents processed by collection checks",
		}),

		// Cache metrics
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of validation results served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of validation cache misses",
		}),
		CacheErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of validation cache backend errors",
		}),

		// Import metrics
		ImportRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Total number of imported records by outcome",
		}, []string{"result"}),
		JobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Number of import jobs currently processing",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordValidation records the outcome of validating one document.
func (m *Metrics) RecordValidation(collection string, valid bool, codes []string) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.ValidationsTotal.WithLabelValues(collection, result).Inc()
	for _, code := range codes {
		m.FieldErrors.WithLabelValues(collection, code).Inc()
	}
}

// RecordCheck records a finished collection check.
func (m *Metrics) RecordCheck(documents int, durationSeconds float64) {
	m.DocumentsChecked.Add(float64(documents))
	m.CheckDuration.Observe(durationSeconds)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// RecordCacheError records a failed cache read or write.
func (m *Metrics) RecordCacheError() {
	m.CacheErrors.Inc()
}

// RecordImport records imported record counts of a finished job.
func (m *Metrics) RecordImport(successful, failed int) {
	m.ImportRecords.WithLabelValues("successful").Add(float64(successful))
	m.ImportRecords.WithLabelValues("failed").Add(float64(failed))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
