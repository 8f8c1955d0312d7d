// Package app assembles the document store, retrieval and answer pipeline
// from configuration.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/llm"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/metrics"
	"docrag/internal/adapter/retriever"
	"docrag/internal/port"
	"docrag/internal/server"
	"docrag/internal/usecase"
)

// App holds the wired components of one process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Embedder port.Embedder
	Store    *memstore.MemoryStore
	Chunker  *chunker.RecursiveChunker
	Ingest   *usecase.IngestUseCase
	Retrieve *usecase.RetrieveUseCase
	Answer   *usecase.AnswerUseCase
}

// New builds every component named by cfg. Metrics are registered on a
// fresh registry so several Apps can live in one process.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	embedder, err := newEmbedder(cfg, m)
	if err != nil {
		return nil, err
	}

	generator, err := llm.New(llm.Config{
		Provider:    cfg.Generation.Provider,
		Model:       cfg.Generation.Model,
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey(),
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	ch, err := chunker.NewRecursiveChunker(cfg.ChunkerConfig())
	if err != nil {
		return nil, err
	}

	store := memstore.NewMemoryStore(embedder,
		memstore.WithLogger(logger.Named("store")),
		memstore.WithMetrics(m),
		memstore.WithEmbedTimeout(cfg.Embedding.Timeout()),
	)
	searcher := retriever.NewSemanticRetriever(store, logger.Named("search"), m)
	packer := usecase.NewContextPacker(cfg.Retrieve.MaxContextChars, cfg.Retrieve.MaxContextTokens, analyzer.NewTokenizer())
	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)

	logger.Debug("pipeline assembled",
		zap.String("embedding_model", embedder.ModelName()),
		zap.String("generation_model", generator.ModelName()),
		zap.Int("chunk_size", cfg.Chunking.ChunkSize),
		zap.Int("chunk_overlap", cfg.Chunking.ChunkOverlap))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  m,
		Embedder: embedder,
		Store:    store,
		Chunker:  ch,
		Ingest:   usecase.NewIngestUseCase(store, ch, walker, logger.Named("ingest"), m),
		Retrieve: usecase.NewRetrieveUseCase(embedder, searcher, cfg.Embedding.Timeout(), logger.Named("retrieve")),
		Answer: usecase.NewAnswerUseCase(embedder, searcher, packer, generator, usecase.AnswerConfig{
			EmbedTimeout:      cfg.Embedding.Timeout(),
			GenerationTimeout: cfg.Generation.Timeout(),
		}, logger.Named("answer"), m),
	}, nil
}

func newEmbedder(cfg *config.Config, m *metrics.Metrics) (port.Embedder, error) {
	embedder, err := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey(),
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
		Stemming:  cfg.Embedding.Stemming,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if cfg.Embedding.CacheSize == 0 {
		return embedder, nil
	}
	return cache.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL(), m), nil
}

// Server builds the HTTP server over the App's components.
func (a *App) Server() (*server.Server, error) {
	return server.NewServer(server.Deps{
		Store:    a.Store,
		Ingest:   a.Ingest,
		Retrieve: a.Retrieve,
		Answer:   a.Answer,
		Gatherer: a.Registry,
	}, a.Logger.Named("http"), &server.Config{
		Host: a.Config.Server.Host,
		Port: a.Config.Server.Port,
	})
}
