package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/metrics"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

// Source is one unit of parsed input text, usually a file.
type Source struct {
	Name  string
	Text  string
	Page  *int
	Extra map[string]string
}

// IngestResult summarizes a directory ingestion.
type IngestResult struct {
	FilesIngested int
	FilesSkipped  int
	ChunksCreated int
	Errors        []string
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func(done, total int, path string)

// IngestUseCase turns sources into chunked, embedded documents.
type IngestUseCase struct {
	store   port.DocumentStore
	chunker port.Chunker
	walker  port.FileWalker
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewIngestUseCase(
	store port.DocumentStore,
	chunker port.Chunker,
	walker port.FileWalker,
	logger *zap.Logger,
	m *metrics.Metrics,
) *IngestUseCase {
	return &IngestUseCase{
		store:   store,
		chunker: chunker,
		walker:  walker,
		logger:  logging.OrNop(logger),
		metrics: m,
		now:     time.Now,
	}
}

// DocumentID names chunk i of a source.
func DocumentID(source string, chunk int) string {
	return fmt.Sprintf("%s-chunk-%d", source, chunk)
}

// IngestText chunks src and stores every chunk with one batch call. It
// returns the number of documents stored.
func (u *IngestUseCase) IngestText(ctx context.Context, src Source) (int, error) {
	if strings.TrimSpace(src.Name) == "" {
		return 0, fmt.Errorf("%w: source name is required", domain.ErrInvalidArgument)
	}

	chunks, err := u.chunker.Chunk(src.Text)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk %s: %w", src.Name, err)
	}
	if len(chunks) == 0 {
		u.removeStale(src.Name, 0)
		return 0, nil
	}

	uploadedAt := u.now().UTC()
	docs := make([]domain.Document, len(chunks))
	for i, ch := range chunks {
		md := domain.Metadata{
			Source:      src.Name,
			Chunk:       ch.Index,
			TotalChunks: len(chunks),
			UploadedAt:  uploadedAt,
			Page:        src.Page,
			Extra:       src.Extra,
		}
		docs[i] = domain.Document{
			ID:       DocumentID(src.Name, ch.Index),
			Content:  ch.Text,
			Metadata: md.Clone(),
		}
	}

	if err := u.store.AddBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", src.Name, err)
	}

	u.removeStale(src.Name, len(docs))

	u.metrics.AddChunks(len(docs))
	u.logger.Info("source ingested",
		zap.String("source", src.Name),
		zap.Int("chunks", len(docs)))
	return len(docs), nil
}

// removeStale deletes chunks of source left over from an earlier, longer
// version of it: every chunk id of source with an index of keep or more.
func (u *IngestUseCase) removeStale(source string, keep int) {
	removed := 0
	for _, doc := range u.store.Snapshot() {
		md := doc.Metadata
		if md.Source != source || md.Chunk < keep || doc.ID != DocumentID(source, md.Chunk) {
			continue
		}
		if u.store.Remove(doc.ID) {
			removed++
		}
	}
	if removed > 0 {
		u.logger.Debug("removed stale chunks",
			zap.String("source", source),
			zap.Int("removed", removed))
	}
}

// IngestDir ingests every matching text file under root. Per-file failures
// are collected in the result; cancellation aborts the walk.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, progress ProgressFunc) (*IngestResult, error) {
	if u.walker == nil {
		return nil, fmt.Errorf("%w: no file walker configured", domain.ErrInvalidConfig)
	}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &IngestResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := u.ingestFile(ctx, file)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.RelPath, err))
			u.logger.Warn("failed to ingest file", zap.String("path", file.RelPath), zap.Error(err))
		case n == 0:
			result.FilesSkipped++
		default:
			result.FilesIngested++
			result.ChunksCreated += n
		}

		if progress != nil {
			progress(i+1, len(files), file.RelPath)
		}
	}

	return result, nil
}

func (u *IngestUseCase) ingestFile(ctx context.Context, file port.FileInfo) (int, error) {
	text, err := fs.ReadText(file.Path)
	if err != nil {
		return 0, err
	}
	name := file.RelPath
	if name == "" {
		name = file.Path
	}
	return u.IngestText(ctx, Source{Name: name, Text: text})
}
