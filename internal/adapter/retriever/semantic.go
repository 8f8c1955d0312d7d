package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"docrag/internal/adapter/metrics"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

// SemanticRetriever ranks documents by cosine similarity with an exhaustive
// scan over a store snapshot.
type SemanticRetriever struct {
	source  port.DocumentSource
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSemanticRetriever(source port.DocumentSource, logger *zap.Logger, m *metrics.Metrics) *SemanticRetriever {
	return &SemanticRetriever{
		source:  source,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// Search returns at most topK documents matching filter, best first. Ties
// keep insertion order. Documents whose vector dimension differs from the
// query are left out.
func (r *SemanticRetriever) Search(ctx context.Context, query []float32, topK int, filter domain.MetadataFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}

	start := time.Now()
	docs := r.source.Snapshot()

	results := make([]domain.SearchResult, 0, len(docs))
	skipped := 0
	for i, doc := range docs {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !doc.HasEmbedding() || !filter.Matches(doc.Metadata) {
			continue
		}
		score, ok := cosineSimilarity(query, doc.Embedding)
		if !ok {
			skipped++
			continue
		}
		results = append(results, domain.SearchResult{Document: doc, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Document = results[i].Document.Clone()
	}

	if skipped > 0 {
		r.logger.Debug("skipped documents with mismatched embedding dimension",
			zap.Int("skipped", skipped),
			zap.Int("query_dimension", len(query)))
	}
	r.metrics.RecordSearch(time.Since(start), len(results))

	return results, nil
}

// cosineSimilarity returns false when the vectors differ in length. Zero
// magnitude on either side scores 0.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, true
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
