package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docrag/internal/adapter/metrics"
	"docrag/internal/port"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 30 * time.Minute
)

// CachedEmbedder keeps recent vectors in an expiring LRU keyed by model
// and text, so repeated queries skip the gateway.
type CachedEmbedder struct {
	embedder port.Embedder
	cache    *expirable.LRU[string, []float32]
	metrics  *metrics.Metrics
}

func NewCachedEmbedder(embedder port.Embedder, size int, ttl time.Duration, m *metrics.Metrics) *CachedEmbedder {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedEmbedder{
		embedder: embedder,
		cache:    expirable.NewLRU[string, []float32](size, nil, ttl),
		metrics:  m,
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.embedder.ModelName() + "\x00" + text))
	return hex.EncodeToString(hash[:16])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit()
		return cloneVector(vec), nil
	}
	c.metrics.RecordCacheMiss()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.cache.Add(key, cloneVector(vec))
	}
	return vec, nil
}

// EmbedBatch forwards only the texts that miss the cache, deduplicated, in
// one call to the wrapped embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	missing := make(map[string][]int)
	var order []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			c.metrics.RecordCacheHit()
			results[i] = cloneVector(vec)
			continue
		}
		c.metrics.RecordCacheMiss()
		if _, seen := missing[text]; !seen {
			order = append(order, text)
		}
		missing[text] = append(missing[text], i)
	}
	if len(order) == 0 {
		return results, nil
	}

	embedded, err := c.embedder.EmbedBatch(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(order) {
		return nil, fmt.Errorf("received %d embeddings for %d texts", len(embedded), len(order))
	}

	for i, text := range order {
		for _, idx := range missing[text] {
			results[idx] = cloneVector(embedded[i])
		}
		if len(embedded[i]) > 0 {
			c.cache.Add(c.cacheKey(text), cloneVector(embedded[i]))
		}
	}
	return results, nil
}

func (c *CachedEmbedder) Dimension() int {
	return c.embedder.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}

func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func (c *CachedEmbedder) Purge() {
	c.cache.Purge()
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	return append([]float32(nil), v...)
}
