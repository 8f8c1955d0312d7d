package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"docrag/internal/adapter/metrics"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

const DefaultEmbedTimeout = 30 * time.Second

// UnknownSource is the Stats bucket for documents without a source.
const UnknownSource = "unknown"

type entry struct {
	doc domain.Document
	seq uint64
}

// MemoryStore is a volatile, process-wide document store. Documents are
// embedded before the write lock is taken, so writers hold the lock only for
// the map mutation.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]entry
	seq  uint64

	embedder     port.Embedder
	embedTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

type Option func(*MemoryStore)

func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) { s.logger = logging.OrNop(logger) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *MemoryStore) { s.metrics = m }
}

// WithEmbedTimeout bounds every embedding gateway call made by the store.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

func NewMemoryStore(embedder port.Embedder, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		docs:         make(map[string]entry),
		embedder:     embedder,
		embedTimeout: DefaultEmbedTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds doc if it has no vector yet, writing the vector back into doc,
// then upserts a copy of it.
func (s *MemoryStore) Add(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidArgument)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidArgument)
	}

	if !doc.HasEmbedding() {
		vec, err := s.embedOne(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("failed to add document %s: %w", doc.ID, err)
		}
		doc.Embedding = vec
	}

	s.mu.Lock()
	s.upsertLocked(doc.Clone())
	n := len(s.docs)
	s.mu.Unlock()

	s.metrics.SetDocuments(n)
	return nil
}

// AddBatch embeds every document lacking a vector with a single batch call
// and then upserts the whole batch at once. On any failure nothing is
// written, neither to the store nor to docs.
func (s *MemoryStore) AddBatch(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var pending []int
	for i := range docs {
		if docs[i].ID == "" {
			return fmt.Errorf("%w: document %d has no id", domain.ErrInvalidArgument, i)
		}
		if !docs[i].HasEmbedding() {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for i, idx := range pending {
			texts[i] = docs[idx].Content
		}

		vecs, err := s.embedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to add batch: %w", err)
		}
		for i, idx := range pending {
			docs[idx].Embedding = vecs[i]
		}
	}

	copies := make([]domain.Document, len(docs))
	for i := range docs {
		copies[i] = docs[i].Clone()
	}

	s.mu.Lock()
	for _, doc := range copies {
		s.upsertLocked(doc)
	}
	n := len(s.docs)
	s.mu.Unlock()

	s.metrics.SetDocuments(n)
	s.logger.Debug("batch stored",
		zap.Int("documents", len(docs)),
		zap.Int("embedded", len(pending)),
		zap.Int("store_size", n))
	return nil
}

// upsertLocked replaces any entry with the same id, keeping its original
// insertion position.
func (s *MemoryStore) upsertLocked(doc domain.Document) {
	if old, ok := s.docs[doc.ID]; ok {
		s.docs[doc.ID] = entry{doc: doc, seq: old.seq}
		return
	}
	s.seq++
	s.docs[doc.ID] = entry{doc: doc, seq: s.seq}
}

func (s *MemoryStore) embedOne(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, text)
	s.metrics.RecordEmbed("single", time.Since(start), err)
	if err != nil {
		return nil, domain.GatewayError(ctx, domain.ErrEmbeddingFailed, "embed document", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", domain.ErrEmbeddingFailed)
	}
	return vec, nil
}

func (s *MemoryStore) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	start := time.Now()
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	s.metrics.RecordEmbed("batch", time.Since(start), err)
	if err != nil {
		return nil, domain.GatewayError(ctx, domain.ErrEmbeddingFailed, "embed batch", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingFailed, len(texts), len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for item %d", domain.ErrEmbeddingFailed, i)
		}
	}
	return vecs, nil
}

func (s *MemoryStore) Get(id string) (domain.Document, error) {
	s.mu.RLock()
	e, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return e.doc.Clone(), nil
}

// Snapshot returns the stored documents in insertion order without copying
// their vectors. Stored documents are replaced, never modified in place, so
// the snapshot stays consistent after the lock is released.
func (s *MemoryStore) Snapshot() []domain.Document {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	docs := make([]domain.Document, len(entries))
	for i, e := range entries {
		docs[i] = e.doc
	}
	return docs
}

func (s *MemoryStore) All() []domain.Document {
	docs := s.Snapshot()
	for i := range docs {
		docs[i] = docs[i].Clone()
	}
	return docs
}

func (s *MemoryStore) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	n := len(s.docs)
	s.mu.Unlock()

	s.metrics.SetDocuments(n)
	return ok
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.docs = make(map[string]entry)
	s.mu.Unlock()

	s.metrics.SetDocuments(0)
	s.logger.Info("store cleared")
}

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{
		DocumentCount: len(s.docs),
		Sources:       make(map[string]int),
	}
	for _, e := range s.docs {
		stats.TotalCharacters += utf8.RuneCountInString(e.doc.Content)
		source := e.doc.Metadata.Source
		if source == "" {
			source = UnknownSource
		}
		stats.Sources[source]++
	}
	if stats.DocumentCount > 0 {
		stats.AverageCharacters = float64(stats.TotalCharacters) / float64(stats.DocumentCount)
	}
	return stats
}
