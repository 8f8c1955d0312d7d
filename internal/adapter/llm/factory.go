package llm

import (
	"fmt"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// New builds the generator named by cfg.Provider.
func New(cfg Config) (port.Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	case ProviderOllama:
		return NewOllamaGenerator(cfg)
	case ProviderExtractive, "":
		return NewExtractiveGenerator(0), nil
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}
