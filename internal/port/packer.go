package port

import "docrag/internal/domain"

// Packer builds a bounded context block from ranked results.
type Packer interface {
	// Pack returns the context text and the results that contributed to it.
	Pack(results []domain.SearchResult) (string, []domain.SearchResult)
}
