package port

import "context"

// GenerationRequest is the input of a streamed completion.
type GenerationRequest struct {
	SystemPrompt string
	// Prompt is the fully rendered user prompt, context included.
	Prompt string
	// Context is the raw context block, for generators that work on it directly.
	Context string
}

// GenerationChunk is one element of a generation stream. Exactly one of
// Text, Done or Err is meaningful.
type GenerationChunk struct {
	Text string
	Done bool
	Err  error
}

// Generator is the generation gateway.
type Generator interface {
	// GenerateStream starts a streamed completion. The channel delivers text
	// fragments in arrival order and ends with a Done or Err chunk before it
	// is closed. Cancelling ctx aborts the upstream call.
	GenerateStream(ctx context.Context, req GenerationRequest) (<-chan GenerationChunk, error)

	// ModelName returns the name of the model.
	ModelName() string
}
