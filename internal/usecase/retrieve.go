package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

const (
	DefaultTopK         = 5
	DefaultEmbedTimeout = 30 * time.Second
)

// RetrieveUseCase embeds a query and searches the store, without generation.
type RetrieveUseCase struct {
	embedder     port.Embedder
	searcher     port.Searcher
	embedTimeout time.Duration
	logger       *zap.Logger
}

func NewRetrieveUseCase(embedder port.Embedder, searcher port.Searcher, embedTimeout time.Duration, logger *zap.Logger) *RetrieveUseCase {
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	return &RetrieveUseCase{
		embedder:     embedder,
		searcher:     searcher,
		embedTimeout: embedTimeout,
		logger:       logging.OrNop(logger),
	}
}

// Retrieve returns the topK documents most similar to query. topK == 0
// selects DefaultTopK.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int, filter domain.MetadataFilter) ([]domain.SearchResult, error) {
	topK, err := normalizeQuery(query, topK)
	if err != nil {
		return nil, err
	}

	vec, err := embedQuery(ctx, u.embedder, u.embedTimeout, query)
	if err != nil {
		return nil, err
	}

	results, err := u.searcher.Search(ctx, vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	u.logger.Debug("retrieved",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))
	return results, nil
}

func normalizeQuery(query string, topK int) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidArgument)
	}
	if topK < 0 {
		return 0, fmt.Errorf("%w: top_k cannot be negative, got %d", domain.ErrInvalidArgument, topK)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	return topK, nil
}

func embedQuery(ctx context.Context, embedder port.Embedder, timeout time.Duration, query string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.GatewayError(ctx, domain.ErrEmbeddingFailed, "embed query", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty query vector", domain.ErrEmbeddingFailed)
	}
	return vec, nil
}
