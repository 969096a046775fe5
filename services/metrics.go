package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-level counters and histograms exposed on
// /metrics
type Metrics struct {
	DocumentsIngested   prometheus.Counter
	ChunksIngested      prometheus.Counter
	EmbeddingsGenerated *prometheus.CounterVec
	EmbeddingFailures   *prometheus.CounterVec
	SearchRequests      prometheus.Counter
	SearchLatency       prometheus.Histogram
	ConsistencyFindings *prometheus.CounterVec
}

// NewMetrics registers the metric set on the given registerer. Pass a
// fresh prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "chunkindex_documents_ingested_total",
			Help: "Documents that completed an ingestion pass",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "chunkindex_chunks_ingested_total",
			Help: "Chunks written during ingestion",
		}),
		EmbeddingsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chunkindex_embeddings_generated_total",
			Help: "Embeddings generated, labeled by embedding type",
		}, []string{"type"}),
		EmbeddingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chunkindex_embedding_failures_total",
			Help: "Failed embedding generations, labeled by embedding type",
		}, []string{"type"}),
		SearchRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "chunkindex_search_requests_total",
			Help: "Similarity search requests served",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chunkindex_search_duration_seconds",
			Help:    "Similarity search latency",
			Buckets: prometheus.DefBuckets,
		}),
		ConsistencyFindings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chunkindex_consistency_findings_total",
			Help: "Consistency findings detected, labeled by finding type",
		}, []string{"type"}),
	}
}
