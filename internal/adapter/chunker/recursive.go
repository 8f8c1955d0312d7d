package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"docrag/internal/domain"
)

// RecursiveChunker splits text on the most structured separator available,
// falling back to finer separators only for pieces that are still too long.
// All sizes are counted in runes.
type RecursiveChunker struct {
	size       int
	overlap    int
	budget     int
	separators []string
}

func NewRecursiveChunker(cfg domain.ChunkingConfig) (*RecursiveChunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	separators := cfg.Separators
	if len(separators) == 0 {
		separators = domain.DefaultSeparators
	}

	return &RecursiveChunker{
		size:       cfg.ChunkSize,
		overlap:    cfg.ChunkOverlap,
		budget:     cfg.ChunkSize - cfg.ChunkOverlap,
		separators: append([]string(nil), separators...),
	}, nil
}

// Split returns only the chunk texts.
func (c *RecursiveChunker) Split(text string) ([]string, error) {
	chunks, err := c.Chunk(text)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out, nil
}

// Chunk splits text into ordered chunks. Every chunk after the first starts
// with the last ChunkOverlap runes of the chunk before it.
func (c *RecursiveChunker) Chunk(text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	bodies := c.merge(c.split(text, c.separators))

	chunks := make([]domain.Chunk, 0, len(bodies))
	prev := ""
	for i, body := range bodies {
		prefix := ""
		if i > 0 {
			prefix = tail(prev, c.overlap)
		}
		chunkText := prefix + body
		chunks = append(chunks, domain.Chunk{
			Index:   i,
			Text:    chunkText,
			Length:  utf8.RuneCountInString(chunkText),
			Overlap: utf8.RuneCountInString(prefix),
		})
		prev = chunkText
	}

	return chunks, nil
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= c.budget {
		return []string{text}
	}

	sep, rest, ok := pickSeparator(text, separators)
	if !ok {
		return []string{text}
	}
	if sep == "" {
		return c.slice(text)
	}

	var out []string
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) <= c.budget {
			out = append(out, piece)
			continue
		}
		out = append(out, c.split(piece, rest)...)
	}
	return out
}

// slice cuts text into budget-sized rune windows. Unbroken tokens longer
// than the budget are never cut: each is emitted whole as its own oversized
// piece, and only the text between them is windowed.
func (c *RecursiveChunker) slice(text string) []string {
	runes := []rune(text)

	var out []string
	pending := 0
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && !unicode.IsSpace(runes[j]) {
			j++
		}
		if j-i > c.budget {
			out = append(out, c.window(runes[pending:i])...)
			out = append(out, string(runes[i:j]))
			pending = j
		}
		i = j
	}
	return append(out, c.window(runes[pending:])...)
}

func (c *RecursiveChunker) window(runes []rune) []string {
	out := make([]string, 0, len(runes)/c.budget+1)
	for start := 0; start < len(runes); start += c.budget {
		end := start + c.budget
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge packs consecutive pieces greedily into bodies of at most budget runes.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var (
		bodies []string
		cur    strings.Builder
		curLen int
	)

	flush := func() {
		if curLen > 0 {
			bodies = append(bodies, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if curLen > 0 && curLen+n > c.budget {
			flush()
		}
		cur.WriteString(piece)
		curLen += n
	}
	flush()

	return bodies
}

func pickSeparator(text string, separators []string) (string, []string, bool) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:], true
		}
	}
	return "", nil, false
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
