package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stock-rag/internal/domain"

	"golang.org/x/sync/errgroup"
)

const (
	embedBatchSize   = 32
	embedConcurrency = 4
	defaultTitle     = "Unknown"
	statusOK         = "ok"
)

// DocumentMetadata carries the optional descriptive fields attached to
// an ingested document. All fields may be empty.
type DocumentMetadata struct {
	Symbol    string
	Title     string
	SourceURL string
	Section   string
}

// IngestDocumentInput describes one document to index. ChunkSize and
// ChunkOverlap are optional; nil selects the configured defaults.
type IngestDocumentInput struct {
	DocumentID   string
	Source       string
	Text         string
	Metadata     DocumentMetadata
	ChunkSize    *int
	ChunkOverlap *int
}

// IngestDocumentUsecase indexes documents into the vector store and
// removes them again. Ingest is idempotent: chunk ids derive from the
// document id and chunk position, so a re-ingest with unchanged
// parameters overwrites in place.
type IngestDocumentUsecase interface {
	Ingest(ctx context.Context, input IngestDocumentInput) (*domain.IngestResult, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

type ingestDocumentUsecase struct {
	chunker domain.Chunker
	encoder domain.VectorEncoder
	index   domain.VectorIndex
	logger  *slog.Logger
}

// NewIngestDocumentUsecase wires the chunker, embedder and index into
// the ingestion pipeline.
func NewIngestDocumentUsecase(
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	index domain.VectorIndex,
	logger *slog.Logger,
) IngestDocumentUsecase {
	return &ingestDocumentUsecase{
		chunker: chunker,
		encoder: encoder,
		index:   index,
		logger:  logger,
	}
}

func (u *ingestDocumentUsecase) Ingest(ctx context.Context, input IngestDocumentInput) (*domain.IngestResult, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, fmt.Errorf("document id is required")
	}

	chunkSize, chunkOverlap, err := resolveChunkParams(input.ChunkSize, input.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Text) == "" {
		u.logger.Warn("empty_document_skipped",
			slog.String("document_id", input.DocumentID),
			slog.String("source", input.Source))
		return &domain.IngestResult{
			ChunksUpserted: 0,
			DocumentID:     input.DocumentID,
			Collection:     u.index.CollectionName(),
			Status:         statusOK,
		}, nil
	}

	chunks := u.chunker.Chunk(input.Text, chunkSize, chunkOverlap)
	u.logger.Info("document_chunked",
		slog.String("document_id", input.DocumentID),
		slog.Int("chunk_count", len(chunks)),
		slog.Int("chunk_size", chunkSize),
		slog.Int("chunk_overlap", chunkOverlap))

	if len(chunks) == 0 {
		return &domain.IngestResult{
			ChunksUpserted: 0,
			DocumentID:     input.DocumentID,
			Collection:     u.index.CollectionName(),
			Status:         statusOK,
		}, nil
	}

	vectors, err := u.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("ingest document %s: %w", input.DocumentID, err)
	}

	if err := u.index.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("ingest document %s: %w", input.DocumentID, err)
	}

	title := strings.TrimSpace(input.Metadata.Title)
	if title == "" {
		title = defaultTitle
	}

	payloads := make([]domain.ChunkPayload, len(chunks))
	for i, text := range chunks {
		payloads[i] = domain.ChunkPayload{
			ChunkID:    fmt.Sprintf("%s:%d", input.DocumentID, i),
			DocumentID: input.DocumentID,
			Source:     input.Source,
			SourceURL:  strings.TrimSpace(input.Metadata.SourceURL),
			Title:      title,
			Section:    strings.TrimSpace(input.Metadata.Section),
			Symbol:     strings.TrimSpace(input.Metadata.Symbol),
			Text:       text,
		}
	}

	if err := u.index.UpsertChunks(ctx, input.DocumentID, input.Source, payloads, vectors); err != nil {
		return nil, fmt.Errorf("ingest document %s: %w", input.DocumentID, err)
	}

	u.logger.Info("document_ingested",
		slog.String("document_id", input.DocumentID),
		slog.String("source", input.Source),
		slog.Int("chunks_upserted", len(payloads)),
		slog.String("embedder", u.encoder.Version()))

	return &domain.IngestResult{
		ChunksUpserted: len(payloads),
		DocumentID:     input.DocumentID,
		Collection:     u.index.CollectionName(),
		Status:         statusOK,
	}, nil
}

// DeleteDocument removes every indexed chunk of the document. An
// unreachable index degrades to a zero-count no-op: the caller is
// idempotent either way, and a later re-ingest repairs any leftovers.
func (u *ingestDocumentUsecase) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("document id is required")
	}

	deleted, err := u.index.DeleteDocument(ctx, documentID)
	if err != nil {
		u.logger.Warn("delete_document_degraded",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		return 0, nil
	}

	u.logger.Info("document_deleted",
		slog.String("document_id", documentID),
		slog.Int("deleted", deleted))
	return deleted, nil
}

// embedChunks encodes chunk texts in order-preserving batches. Batches
// run concurrently; chunk order within the result is unaffected.
func (u *ingestDocumentUsecase) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			batch, err := u.encoder.Encode(gctx, chunks[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbedding, end-start, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func resolveChunkParams(size, overlap *int) (int, int, error) {
	resolvedSize := domain.DefaultChunkSize
	if size != nil && *size > 0 {
		resolvedSize = *size
	}
	resolvedOverlap := domain.DefaultChunkOverlap
	if overlap != nil {
		resolvedOverlap = *overlap
	}
	if resolvedOverlap < 0 {
		resolvedOverlap = 0
	}
	if resolvedOverlap >= resolvedSize {
		return 0, 0, fmt.Errorf("%w: overlap %d, size %d", domain.ErrInvalidChunkParams, resolvedOverlap, resolvedSize)
	}
	return resolvedSize, resolvedOverlap, nil
}
