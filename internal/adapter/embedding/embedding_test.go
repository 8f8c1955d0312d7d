package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/domain"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedderDeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Revenue was 2.1M euros in 2024.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Revenue was 2.1M euros in 2024.")
	require.NoError(t, err)

	assert.Len(t, a, 128)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Equal(t, 128, e.Dimension())
	assert.Equal(t, "hash", e.ModelName())
}

func TestHashEmbedderRelatedTextsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(1024)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{
		"What was the revenue in 2024?",
		"Revenue was 2.1M euros in 2024.",
		"Dog feeding instructions.",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestHashEmbedderStemmingMergesInflections(t *testing.T) {
	ctx := context.Background()

	stemmed := NewHashEmbedder(1024, analyzer.WithStemming(true))
	a, err := stemmed.Embed(ctx, "quarterly revenues")
	require.NoError(t, err)
	b, err := stemmed.Embed(ctx, "quarterly revenue")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(a, b), 1e-5)

	plain := NewHashEmbedder(1024)
	a, err = plain.Embed(ctx, "quarterly revenues")
	require.NoError(t, err)
	b, err = plain.Embed(ctx, "quarterly revenue")
	require.NoError(t, err)
	assert.Less(t, dot(a, b), 0.99)
}

func TestNewHashWiresStemming(t *testing.T) {
	emb, err := New(Config{Provider: "hash", Dimension: 512, Stemming: true})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := emb.Embed(ctx, "feeding dogs")
	require.NoError(t, err)
	b, err := emb.Embed(ctx, "feed dog")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(a, b), 1e-5)
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(0)

	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultHashDimension)
	assert.Zero(t, norm(vec))
}

func TestHashEmbedderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeClient struct {
	calls int
	err   error
}

func (c *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0, 1}
	}
	return out, nil
}

func TestLangchainEmbedderBatchesAndLearnsDimension(t *testing.T) {
	client := &fakeClient{}
	e, err := newLangchainEmbedder(client, Config{Model: "test-model", BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 0, e.Dimension())

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, float32(4), vecs[3][0])
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, "test-model", e.ModelName())
}

func TestLangchainEmbedderWrapsErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	e, err := newLangchainEmbedder(client, Config{Model: "m", Dimension: 7})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 7, e.Dimension())
}

func TestNewSelectsProvider(t *testing.T) {
	emb, err := New(Config{Provider: "hash", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, emb.Dimension())

	emb, err = New(Config{Provider: "ollama", Model: "nomic-embed-text", BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", emb.ModelName())

	_, err = New(Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
