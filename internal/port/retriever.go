package port

import (
	"context"

	"docrag/internal/domain"
)

// Searcher ranks stored documents against a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int, filter domain.MetadataFilter) ([]domain.SearchResult, error)
}
