package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the retrieval pipeline.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - docrag_documents_stored - current number of stored documents
//   - docrag_chunks_created_total - chunks produced by ingestion
//   - docrag_embed_requests_total{op,status} - embedding gateway calls
//   - docrag_embed_duration_seconds{op} - embedding gateway latency
//   - docrag_search_duration_seconds - similarity search latency
//   - docrag_search_results - results returned per search
//   - docrag_answers_total{outcome} - orchestrated answers by outcome
//   - docrag_generation_duration_seconds - generation stream latency
//   - docrag_embedding_cache_hits_total / _misses_total
type Metrics struct {
	DocumentsStored    prometheus.Gauge
	ChunksCreatedTotal prometheus.Counter

	EmbedRequestsTotal *prometheus.CounterVec
	EmbedDuration      *prometheus.HistogramVec

	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram

	AnswersTotal       *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsStored: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docrag_documents_stored",
			Help: "Current number of documents in the store",
		}),
		ChunksCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docrag_chunks_created_total",
			Help: "Total number of chunks produced by ingestion",
		}),
		EmbedRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_embed_requests_total",
				Help: "Total number of embedding gateway calls",
			},
			[]string{"op", "status"}, // op: "single" or "batch"
		),
		EmbedDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrag_embed_duration_seconds",
				Help:    "Duration of embedding gateway calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"op"},
		),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docrag_search_duration_seconds",
			Help:    "Duration of similarity searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docrag_search_results",
			Help:    "Number of results returned per search",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_answers_total",
				Help: "Total number of answers by outcome",
			},
			[]string{"outcome"}, // "done", "canceled" or an error kind
		),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docrag_generation_duration_seconds",
			Help:    "Duration of generation streams in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docrag_embedding_cache_hits_total",
			Help: "Total number of embedding cache hits",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docrag_embedding_cache_misses_total",
			Help: "Total number of embedding cache misses",
		}),
	}
}

func (m *Metrics) SetDocuments(n int) {
	if m == nil {
		return
	}
	m.DocumentsStored.Set(float64(n))
}

func (m *Metrics) AddChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksCreatedTotal.Add(float64(n))
}

// RecordEmbed records one embedding call.
func (m *Metrics) RecordEmbed(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EmbedRequestsTotal.WithLabelValues(op, status).Inc()
	m.EmbedDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) RecordSearch(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResults.Observe(float64(results))
}

func (m *Metrics) RecordAnswer(outcome string, generation time.Duration) {
	if m == nil {
		return
	}
	m.AnswersTotal.WithLabelValues(outcome).Inc()
	if generation > 0 {
		m.GenerationDuration.Observe(generation.Seconds())
	}
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}
