package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docrag/internal/adapter/analyzer"
)

const DefaultHashDimension = 256

// HashEmbedder maps text to a feature-hashed bag of words. It needs no
// network and is deterministic, which makes it the offline and test default.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

// NewHashEmbedder creates an embedder whose tokens come from an
// analyzer.Tokenizer built with opts.
func NewHashEmbedder(dimension int, opts ...analyzer.Option) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(opts...),
	}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash"
}

// vector is L2-normalized. Text without tokens yields the zero vector.
func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, token := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dimension))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
