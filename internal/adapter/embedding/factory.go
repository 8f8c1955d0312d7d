package embedding

import (
	"fmt"
	"strings"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// New builds the embedder named by cfg.Provider.
func New(cfg Config) (port.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg)
	case ProviderHash, "":
		return NewHashEmbedder(cfg.Dimension, analyzer.WithStemming(cfg.Stemming)), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}
