package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docrag/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"

	DefaultBatchSize = 64
)

// Config selects and parameterizes an embedding provider.
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int
	BatchSize int
	// Stemming applies Porter stemming to hash embedder tokens.
	Stemming bool
}

// LangchainEmbedder adapts a langchaingo embedder to port.Embedder.
type LangchainEmbedder struct {
	impl      embeddings.Embedder
	model     string
	dimension atomic.Int64
}

func NewOpenAIEmbedder(cfg Config) (*LangchainEmbedder, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize openai client: %v", domain.ErrInvalidConfig, err)
	}
	return newLangchainEmbedder(client, cfg)
}

func NewOllamaEmbedder(cfg Config) (*LangchainEmbedder, error) {
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize ollama client: %v", domain.ErrInvalidConfig, err)
	}
	return newLangchainEmbedder(client, cfg)
}

func newLangchainEmbedder(client embeddings.EmbedderClient, cfg Config) (*LangchainEmbedder, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	impl, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to construct embedder: %v", domain.ErrInvalidConfig, err)
	}

	e := &LangchainEmbedder{impl: impl, model: cfg.Model}
	e.dimension.Store(int64(cfg.Dimension))
	return e, nil
}

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query with %s: %w", e.model, err)
	}
	e.learnDimension(vec)
	return vec, nil
}

func (e *LangchainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts with %s: %w", len(texts), e.model, err)
	}
	if len(vecs) > 0 {
		e.learnDimension(vecs[0])
	}
	return vecs, nil
}

// Dimension reports the configured dimension, or the one observed in the
// first response when none was configured.
func (e *LangchainEmbedder) Dimension() int {
	return int(e.dimension.Load())
}

func (e *LangchainEmbedder) ModelName() string {
	return e.model
}

func (e *LangchainEmbedder) learnDimension(vec []float32) {
	if len(vec) > 0 {
		e.dimension.CompareAndSwap(0, int64(len(vec)))
	}
}
