package port

import "context"

// Embedder is the embedding gateway: it maps text to fixed-length vectors.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension, or 0 if unknown.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
