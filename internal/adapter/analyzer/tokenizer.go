package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer lowercases text, splits it on non-word characters and drops
// stopwords and single-character tokens. With stemming enabled, the
// remaining tokens are reduced to their Porter stems.
type Tokenizer struct {
	stopwords map[string]struct{}
	stemmer   *PorterStemmer
}

type Option func(*Tokenizer)

// WithStemming toggles Porter stemming of tokens.
func WithStemming(enabled bool) Option {
	return func(t *Tokenizer) {
		if enabled {
			t.stemmer = NewPorterStemmer()
		} else {
			t.stemmer = nil
		}
	}
}

// NewTokenizer creates a Tokenizer with the default English stopword list.
// Stemming is off unless requested.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{stopwords: defaultStopwords()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize splits text into content-bearing tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(word)
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// CountTokens estimates the LLM token cost of text.
// Words average about 1.3 subword tokens; punctuation-heavy text is covered
// by a floor of one token per four characters.
func (t *Tokenizer) CountTokens(text string) int {
	words := len(splitWords(text))
	byWords := int(float64(words) * 1.3)
	byRunes := utf8.RuneCountInString(text) / 4
	if byRunes > byWords {
		return byRunes
	}
	if byWords == 0 && text != "" {
		return 1
	}
	return byWords
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
