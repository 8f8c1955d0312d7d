package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const DefaultMaxContextChars = 8000

const sectionSeparator = "\n\n"

// ContextPacker concatenates ranked results into a context block bounded by
// a character budget and, optionally, a token budget.
type ContextPacker struct {
	maxChars  int
	maxTokens int
	tokenizer port.Tokenizer
}

// NewContextPacker creates a packer. maxTokens <= 0 disables the token
// budget; a nil tokenizer does too.
func NewContextPacker(maxChars, maxTokens int, tokenizer port.Tokenizer) *ContextPacker {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	if tokenizer == nil {
		maxTokens = 0
	}
	return &ContextPacker{
		maxChars:  maxChars,
		maxTokens: maxTokens,
		tokenizer: tokenizer,
	}
}

// Pack keeps results in similarity order and stops at the first one that
// does not fit. A first result that alone exceeds the budget is truncated
// rather than dropped.
func (p *ContextPacker) Pack(results []domain.SearchResult) (string, []domain.SearchResult) {
	var (
		sb        strings.Builder
		used      []domain.SearchResult
		usedChars int
	)

	for i, r := range results {
		header := sectionHeader(i+1, r.Document)
		section := header + r.Document.Content
		sep := ""
		if sb.Len() > 0 {
			sep = sectionSeparator
		}

		cost := utf8.RuneCountInString(sep + section)
		if usedChars+cost <= p.maxChars && p.fitsTokens(sb.String()+sep+section) {
			sb.WriteString(sep)
			sb.WriteString(section)
			usedChars += cost
			used = append(used, r)
			continue
		}

		if len(used) == 0 {
			if truncated, ok := p.truncate(header, r.Document.Content); ok {
				sb.WriteString(truncated)
				used = append(used, r)
			}
		}
		break
	}

	return sb.String(), used
}

func (p *ContextPacker) fitsTokens(text string) bool {
	if p.maxTokens <= 0 {
		return true
	}
	return p.tokenizer.CountTokens(text) <= p.maxTokens
}

func (p *ContextPacker) truncate(header, content string) (string, bool) {
	room := p.maxChars - utf8.RuneCountInString(header)
	if room <= 0 {
		return "", false
	}

	runes := []rune(content)
	if len(runes) > room {
		runes = runes[:room]
	}
	for len(runes) > 0 && !p.fitsTokens(header+string(runes)) {
		runes = runes[:len(runes)*9/10]
	}
	if len(runes) == 0 {
		return "", false
	}
	return header + string(runes), true
}

func sectionHeader(n int, doc domain.Document) string {
	return fmt.Sprintf("[%d] %s\n", n, displaySource(doc))
}

func displaySource(doc domain.Document) string {
	if doc.Metadata.Source != "" {
		return doc.Metadata.Source
	}
	return doc.ID
}
