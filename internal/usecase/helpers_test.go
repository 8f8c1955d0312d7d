package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
	"docrag/internal/port"
)

// stubEmbedder wraps the hash embedder with failure injection.
type stubEmbedder struct {
	*embedding.HashEmbedder
	err   error
	block bool
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.HashEmbedder.Embed(ctx, text)
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{HashEmbedder: embedding.NewHashEmbedder(1024)}
}

// scriptedGenerator replays fragments and records the request it got.
type scriptedGenerator struct {
	fragments []string
	err       error
	noDone    bool
	endless   bool
	block     bool
	startErr  error

	mu       sync.Mutex
	req      port.GenerationRequest
	canceled bool
}

func (g *scriptedGenerator) GenerateStream(ctx context.Context, req port.GenerationRequest) (<-chan port.GenerationChunk, error) {
	if g.startErr != nil {
		return nil, g.startErr
	}
	g.mu.Lock()
	g.req = req
	g.mu.Unlock()

	out := make(chan port.GenerationChunk)
	go func() {
		defer close(out)

		send := func(c port.GenerationChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				g.mu.Lock()
				g.canceled = true
				g.mu.Unlock()
				return false
			}
		}

		if g.block {
			<-ctx.Done()
			return
		}
		for i := 0; g.endless || i < len(g.fragments); i++ {
			text := "tick "
			if !g.endless {
				text = g.fragments[i]
			}
			if !send(port.GenerationChunk{Text: text}) {
				return
			}
		}
		switch {
		case g.err != nil:
			send(port.GenerationChunk{Err: g.err})
		case !g.noDone:
			send(port.GenerationChunk{Done: true})
		}
	}()
	return out, nil
}

func (g *scriptedGenerator) ModelName() string { return "scripted" }

func (g *scriptedGenerator) request() port.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.req
}

func (g *scriptedGenerator) wasCanceled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled
}

// recordingSearcher wraps a searcher and remembers its last arguments.
type recordingSearcher struct {
	port.Searcher
	topK   int
	filter domain.MetadataFilter
}

func (s *recordingSearcher) Search(ctx context.Context, q []float32, topK int, filter domain.MetadataFilter) ([]domain.SearchResult, error) {
	s.topK = topK
	s.filter = filter
	return s.Searcher.Search(ctx, q, topK, filter)
}

type fixture struct {
	embedder *stubEmbedder
	store    *memstore.MemoryStore
	searcher *recordingSearcher
	ingest   *IngestUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	emb := newStubEmbedder()
	store := memstore.NewMemoryStore(emb)
	ch, err := chunker.NewRecursiveChunker(domain.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 20})
	require.NoError(t, err)

	return &fixture{
		embedder: emb,
		store:    store,
		searcher: &recordingSearcher{Searcher: retriever.NewSemanticRetriever(store, nil, nil)},
		ingest:   NewIngestUseCase(store, ch, nil, nil, nil),
	}
}

func (f *fixture) seedScenario(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: "Revenue was 2.1M euros in 2024."})
	require.NoError(t, err)
	_, err = f.ingest.IngestText(ctx, Source{Name: "b.txt", Text: "Dog feeding instructions."})
	require.NoError(t, err)
}

func collect(t *testing.T, ch <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("event stream did not close, got %d events", len(events))
		}
	}
}
