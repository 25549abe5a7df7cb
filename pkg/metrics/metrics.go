// Package metrics defines the Prometheus metric collectors used across the
// library and exposes an HTTP handler for scraping. Collectors live on a
// private registry so that multiple Metrics values can coexist in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the corpus pipeline.
type Metrics struct {
	DocsProcessedTotal   prometheus.Counter
	TokensProcessedTotal prometheus.Counter
	VocabularySize       prometheus.Gauge
	DocsSerializedTotal  *prometheus.CounterVec
	SerializeDuration    *prometheus.HistogramVec
	SerializeErrorsTotal *prometheus.CounterVec
	VocabStoreOpsTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all Prometheus metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		DocsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dictionary_docs_processed_total",
				Help: "Total documents consumed while building the dictionary.",
			},
		),
		TokensProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dictionary_tokens_processed_total",
				Help: "Total token occurrences consumed while building the dictionary.",
			},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dictionary_vocabulary_size",
				Help: "Number of distinct tokens currently in the dictionary.",
			},
		),
		DocsSerializedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_docs_serialized_total",
				Help: "Total document vectors written, by on-disk format.",
			},
			[]string{"format"},
		),
		SerializeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpus_serialize_duration_seconds",
				Help:    "Wall time spent serializing a corpus, by format.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"format"},
		),
		SerializeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_serialize_errors_total",
				Help: "Total failed corpus serializations, by format.",
			},
			[]string{"format"},
		),
		VocabStoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_store_operations_total",
				Help: "Vocabulary store operations by backend and status.",
			},
			[]string{"backend", "operation", "status"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.DocsProcessedTotal,
		m.TokensProcessedTotal,
		m.VocabularySize,
		m.DocsSerializedTotal,
		m.SerializeDuration,
		m.SerializeErrorsTotal,
		m.VocabStoreOpsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this Metrics value.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
