package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderExtractive = "extractive"
)

// Config selects and parameterizes a generation provider.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// LangchainGenerator streams chat completions from a langchaingo model.
type LangchainGenerator struct {
	model       llms.Model
	name        string
	temperature float64
	maxTokens   int
}

func NewOpenAIGenerator(cfg Config) (*LangchainGenerator, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize openai client: %v", domain.ErrInvalidConfig, err)
	}
	return NewLangchainGenerator(model, cfg), nil
}

func NewOllamaGenerator(cfg Config) (*LangchainGenerator, error) {
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize ollama client: %v", domain.ErrInvalidConfig, err)
	}
	return NewLangchainGenerator(model, cfg), nil
}

func NewLangchainGenerator(model llms.Model, cfg Config) *LangchainGenerator {
	return &LangchainGenerator{
		model:       model,
		name:        cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// GenerateStream runs the completion in a goroutine. Fragments are forwarded
// as the model's streaming callback delivers them; the callback blocks until
// the consumer takes each fragment or ctx is done, which aborts the request.
func (g *LangchainGenerator) GenerateStream(ctx context.Context, req port.GenerationRequest) (<-chan port.GenerationChunk, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	out := make(chan port.GenerationChunk)

	go func() {
		defer close(out)

		opts := []llms.CallOption{
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case out <- port.GenerationChunk{Text: string(chunk)}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
			llms.WithTemperature(g.temperature),
		}
		if g.maxTokens > 0 {
			opts = append(opts, llms.WithMaxTokens(g.maxTokens))
		}

		final := port.GenerationChunk{Done: true}
		if _, err := g.model.GenerateContent(ctx, messages, opts...); err != nil {
			final = port.GenerationChunk{Err: fmt.Errorf("failed to generate with %s: %w", g.name, err)}
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func (g *LangchainGenerator) ModelName() string {
	return g.name
}
