package port

import (
	"context"

	"docrag/internal/domain"
)

// DocumentSource exposes a consistent snapshot of stored documents.
type DocumentSource interface {
	// Snapshot returns every stored document in insertion order. The
	// documents share their embedding and metadata storage with the store
	// and must be treated as read-only.
	Snapshot() []domain.Document
}

// DocumentStore is the single source of truth for searchable documents.
type DocumentStore interface {
	DocumentSource

	Add(ctx context.Context, doc *domain.Document) error

	AddBatch(ctx context.Context, docs []domain.Document) error

	Get(id string) (domain.Document, error)

	// All returns deep copies of every stored document in insertion order.
	All() []domain.Document

	Remove(id string) bool

	Clear()

	Size() int

	Stats() domain.Stats
}
