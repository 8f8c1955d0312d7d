package server

import "docrag/internal/domain"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// IngestRequest is the request body for POST /api/v1/documents.
type IngestRequest struct {
	Name     string            `json:"name"`
	Text     string            `json:"text"`
	Page     *int              `json:"page,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse is the response body for POST /api/v1/documents.
type IngestResponse struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// DocumentView is a stored document without its vector.
type DocumentView struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Metadata  domain.Metadata `json:"metadata"`
	Dimension int             `json:"dimension"`
}

func newDocumentView(d domain.Document) DocumentView {
	return DocumentView{
		ID:        d.ID,
		Content:   d.Content,
		Metadata:  d.Metadata,
		Dimension: len(d.Embedding),
	}
}

// ListResponse is the response body for GET /api/v1/documents.
type ListResponse struct {
	Documents []DocumentView `json:"documents"`
	Count     int            `json:"count"`
}

// SearchHit is one ranked document.
type SearchHit struct {
	DocumentView
	Score float64 `json:"score"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}
