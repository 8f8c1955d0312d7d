package domain

import (
	"strconv"
	"time"
)

// Reserved metadata keys.
const (
	MetaSource      = "source"
	MetaChunk       = "chunk"
	MetaTotalChunks = "total_chunks"
	MetaUploadedAt  = "uploaded_at"
	MetaPage        = "page"
)

// Chunk is a contiguous slice of a larger text produced by a chunker.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	// Length is the number of characters (runes) in Text.
	Length int `json:"length"`
	// Overlap is the number of leading characters repeated from the previous chunk.
	Overlap int `json:"overlap"`
}

// Metadata holds the fields the core reads plus an open extension map.
type Metadata struct {
	Source      string            `json:"source"`
	Chunk       int               `json:"chunk"`
	TotalChunks int               `json:"total_chunks"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Page        *int              `json:"page,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Lookup returns the canonical string form of a metadata field.
func (m Metadata) Lookup(key string) (string, bool) {
	switch key {
	case MetaSource:
		return m.Source, true
	case MetaChunk:
		return strconv.Itoa(m.Chunk), true
	case MetaTotalChunks:
		return strconv.Itoa(m.TotalChunks), true
	case MetaUploadedAt:
		if m.UploadedAt.IsZero() {
			return "", false
		}
		return m.UploadedAt.UTC().Format(time.RFC3339), true
	case MetaPage:
		if m.Page == nil {
			return "", false
		}
		return strconv.Itoa(*m.Page), true
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Page != nil {
		p := *m.Page
		out.Page = &p
	}
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Document is a searchable unit of text, usually one chunk of a source file.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the document already carries a vector.
func (d Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// Clone returns a deep copy so the caller and the store never share slices.
func (d Document) Clone() Document {
	out := d
	out.Metadata = d.Metadata.Clone()
	if d.Embedding != nil {
		out.Embedding = append([]float32(nil), d.Embedding...)
	}
	return out
}

// MetadataFilter is an exact-match constraint on metadata fields.
type MetadataFilter map[string]string

// Matches reports whether every filter key is present in md with an equal value.
func (f MetadataFilter) Matches(md Metadata) bool {
	for key, want := range f {
		got, ok := md.Lookup(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// SearchResult pairs a document with its cosine similarity to a query.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Stats is an aggregate view over the store contents.
type Stats struct {
	DocumentCount     int            `json:"document_count"`
	TotalCharacters   int            `json:"total_characters"`
	AverageCharacters float64        `json:"average_characters"`
	Sources           map[string]int `json:"sources"`
}
