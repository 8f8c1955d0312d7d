package port

import "docrag/internal/domain"

// Chunker splits text into ordered, overlapping segments.
type Chunker interface {
	Split(text string) ([]string, error)
	Chunk(text string) ([]domain.Chunk, error)
}
