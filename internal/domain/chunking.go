package domain

import "fmt"

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried most-structured-first. The trailing empty
// separator falls back to character slicing.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ChunkingConfig controls how text is split. Sizes are in characters.
type ChunkingConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultChunkingConfig returns the stock chunking parameters.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   append([]string(nil), DefaultSeparators...),
	}
}

// Validate checks the size invariants.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be greater than zero, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap cannot be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
