package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/memstore"
	"docrag/internal/domain"
)

func TestIngestTextBuildsDocuments(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ingest.now = func() time.Time { return fixed }
	page := 3

	text := strings.Repeat("Quarterly revenue grew. ", 30)
	n, err := f.ingest.IngestText(context.Background(), Source{
		Name:  "report.pdf",
		Text:  text,
		Page:  &page,
		Extra: map[string]string{"lang": "en"},
	})
	require.NoError(t, err)
	require.Greater(t, n, 1)
	assert.Equal(t, n, f.store.Size())

	docs := f.store.All()
	for i, d := range docs {
		assert.Equal(t, DocumentID("report.pdf", i), d.ID)
		assert.Equal(t, "report.pdf", d.Metadata.Source)
		assert.Equal(t, i, d.Metadata.Chunk)
		assert.Equal(t, n, d.Metadata.TotalChunks)
		assert.Equal(t, fixed, d.Metadata.UploadedAt)
		require.NotNil(t, d.Metadata.Page)
		assert.Equal(t, 3, *d.Metadata.Page)
		assert.Equal(t, "en", d.Metadata.Extra["lang"])
		assert.True(t, d.HasEmbedding())
	}
	assert.Equal(t, "report.pdf-chunk-0", docs[0].ID)
}

func TestIngestTextEmptyAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.ingest.IngestText(ctx, Source{Name: "empty.txt"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.store.Size())

	_, err = f.ingest.IngestText(ctx, Source{Text: "orphan"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIngestTextReplacesOnReingest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: "old content"})
	require.NoError(t, err)
	_, err = f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: "new content"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.Size())
	got, err := f.store.Get("a.txt-chunk-0")
	require.NoError(t, err)
	assert.Equal(t, "new content", got.Content)
}

func TestIngestTextDropsChunksOfShorterVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: strings.Repeat("Quarterly revenue grew. ", 30)})
	require.NoError(t, err)
	require.Greater(t, n, 2)

	// Same id scheme, different source: must survive.
	other := domain.Document{ID: "b.txt-chunk-5", Content: "keep me", Metadata: domain.Metadata{Source: "b.txt", Chunk: 5}}
	require.NoError(t, f.store.Add(ctx, &other))

	n, err = f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: "Short now."})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	assert.Equal(t, 2, f.store.Size())
	for _, d := range f.store.All() {
		if d.Metadata.Source == "a.txt" {
			assert.Equal(t, "a.txt-chunk-0", d.ID)
			assert.Equal(t, 1, d.Metadata.TotalChunks)
		}
	}
	_, err = f.store.Get("a.txt-chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err = f.ingest.IngestText(ctx, Source{Name: "a.txt", Text: ""})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.store.Size())
	_, err = f.store.Get("b.txt-chunk-5")
	assert.NoError(t, err)
}

func TestIngestDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("Revenue was 2.1M euros in 2024."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.txt"), []byte{0, 1, 2}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.go"), []byte("package x"), 0o644))

	emb := newStubEmbedder()
	store := memstore.NewMemoryStore(emb)
	ch, err := chunker.NewRecursiveChunker(domain.DefaultChunkingConfig())
	require.NoError(t, err)
	uc := NewIngestUseCase(store, ch, fs.NewWalker(nil, nil), nil, nil)

	var seen []string
	res, err := uc.IngestDir(context.Background(), root, func(done, total int, path string) {
		assert.Equal(t, 3, total)
		seen = append(seen, path)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilesIngested)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, res.ChunksCreated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bin.txt")
	assert.Equal(t, []string{"a.txt", "bin.txt", "empty.md"}, seen)

	_, err = store.Get("a.txt-chunk-0")
	assert.NoError(t, err)
}

func TestIngestDirCancelled(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("text"), 0o644))

	f := newFixture(t)
	f.ingest.walker = fs.NewWalker(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ingest.IngestDir(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.Size())
}
