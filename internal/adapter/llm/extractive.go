package llm

import (
	"context"
	"regexp"
	"strings"

	"docrag/internal/port"
)

const (
	DefaultMaxSentences = 3

	NoContextAnswer = "I could not find any stored documents relevant to this question."
)

var (
	headerLine  = regexp.MustCompile(`^\[\d+\] `)
	sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)
)

// ExtractiveGenerator answers with the leading sentences of the context. It
// streams word by word so callers see the same event shape as with a model.
type ExtractiveGenerator struct {
	maxSentences int
}

func NewExtractiveGenerator(maxSentences int) *ExtractiveGenerator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &ExtractiveGenerator{maxSentences: maxSentences}
}

func (g *ExtractiveGenerator) GenerateStream(ctx context.Context, req port.GenerationRequest) (<-chan port.GenerationChunk, error) {
	answer := g.answer(req.Context)
	out := make(chan port.GenerationChunk)

	go func() {
		defer close(out)

		words := strings.Fields(answer)
		for i, w := range words {
			if i < len(words)-1 {
				w += " "
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- port.GenerationChunk{Text: w}:
			case <-ctx.Done():
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case out <- port.GenerationChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func (g *ExtractiveGenerator) ModelName() string {
	return ProviderExtractive
}

func (g *ExtractiveGenerator) answer(contextBlock string) string {
	var body []string
	for _, line := range strings.Split(contextBlock, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || headerLine.MatchString(line) {
			continue
		}
		body = append(body, line)
	}
	if len(body) == 0 {
		return NoContextAnswer
	}

	text := strings.Join(body, " ")
	ends := sentenceEnd.FindAllStringIndex(text, g.maxSentences)
	if len(ends) >= g.maxSentences {
		text = text[:ends[g.maxSentences-1][1]]
	}
	return strings.TrimSpace(text)
}
