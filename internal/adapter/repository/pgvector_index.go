package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"stock-rag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// pgUndefinedTable is the SQLSTATE for "relation does not exist".
const pgUndefinedTable = "42P01"

// PgVectorIndex stores chunks in a single Postgres table with a
// pgvector embedding column. The table doubles as the "collection":
// chunk_id is the point id, the remaining columns are the payload.
type PgVectorIndex struct {
	pool       *pgxpool.Pool
	table      string
	defaultDim int
	logger     *slog.Logger

	mu      sync.Mutex
	ensured bool
}

// NewPgVectorIndex creates an index over the named table. defaultDim
// is used when EnsureCollection is called before any embedding exists.
func NewPgVectorIndex(pool *pgxpool.Pool, table string, defaultDim int, logger *slog.Logger) *PgVectorIndex {
	return &PgVectorIndex{
		pool:       pool,
		table:      table,
		defaultDim: defaultDim,
		logger:     logger,
	}
}

func (r *PgVectorIndex) CollectionName() string {
	return r.table
}

// EnsureCollection creates the pgvector extension and the chunk table
// if absent. Idempotent; the vector dimensionality is fixed at first
// creation and later calls with a different size are no-ops.
func (r *PgVectorIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensured {
		return nil
	}

	if vectorSize <= 0 {
		vectorSize = r.defaultDim
	}

	if _, err := r.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("%w: create extension: %v", domain.ErrIndex, err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id    text PRIMARY KEY,
			document_id text NOT NULL,
			source      text NOT NULL DEFAULT '',
			source_url  text NOT NULL DEFAULT '',
			title       text NOT NULL DEFAULT '',
			section     text NOT NULL DEFAULT '',
			symbol      text NOT NULL DEFAULT '',
			body        text NOT NULL,
			embedding   vector(%d) NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`, r.ident(), vectorSize)
	if _, err := r.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("%w: create collection %s: %v", domain.ErrIndex, r.table, err)
	}

	createIdx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
		pgx.Identifier{r.table + "_document_id_idx"}.Sanitize(), r.ident())
	if _, err := r.pool.Exec(ctx, createIdx); err != nil {
		return fmt.Errorf("%w: create index: %v", domain.ErrIndex, err)
	}

	r.logger.Info("collection_ensured",
		slog.String("collection", r.table),
		slog.Int("vector_size", vectorSize))
	r.ensured = true
	return nil
}

// UpsertChunks writes all points in one batch. Point ids come from the
// payload chunk ids, so re-ingesting a document replaces its rows. If
// the table vanished since EnsureCollection, it is recreated once and
// the batch retried.
func (r *PgVectorIndex) UpsertChunks(ctx context.Context, documentID, source string, payloads []domain.ChunkPayload, vectors [][]float32) error {
	if len(payloads) != len(vectors) {
		return fmt.Errorf("%w: %d payloads for %d vectors", domain.ErrIndex, len(payloads), len(vectors))
	}
	if len(payloads) == 0 {
		return nil
	}

	err := r.upsertBatch(ctx, payloads, vectors)
	if isUndefinedTable(err) {
		r.mu.Lock()
		r.ensured = false
		r.mu.Unlock()
		if ensureErr := r.EnsureCollection(ctx, len(vectors[0])); ensureErr != nil {
			return ensureErr
		}
		err = r.upsertBatch(ctx, payloads, vectors)
	}
	if err != nil {
		return fmt.Errorf("%w: upsert %d chunks for document %s: %v", domain.ErrIndex, len(payloads), documentID, err)
	}

	r.logger.Debug("chunks_upserted",
		slog.String("document_id", documentID),
		slog.String("source", source),
		slog.Int("count", len(payloads)))
	return nil
}

func (r *PgVectorIndex) upsertBatch(ctx context.Context, payloads []domain.ChunkPayload, vectors [][]float32) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, source, source_url, title, section, symbol, body, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			source      = EXCLUDED.source,
			source_url  = EXCLUDED.source_url,
			title       = EXCLUDED.title,
			section     = EXCLUDED.section,
			symbol      = EXCLUDED.symbol,
			body        = EXCLUDED.body,
			embedding   = EXCLUDED.embedding,
			created_at  = now()`, r.ident())

	batch := &pgx.Batch{}
	for i, p := range payloads {
		batch.Queue(sql,
			p.ChunkID, p.DocumentID, p.Source, p.SourceURL,
			p.Title, p.Section, p.Symbol, p.Text,
			pgvector.NewVector(vectors[i]))
	}

	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range payloads {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Search runs a cosine nearest-neighbor query under the filter. A
// missing table is a normal empty result, not an error.
func (r *PgVectorIndex) Search(ctx context.Context, queryVector []float32, topK int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	var conditions []string
	args := []interface{}{pgvector.NewVector(queryVector)}
	appendFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendFilter("document_id", filter.DocumentID)
	appendFilter("source", filter.Source)
	appendFilter("symbol", filter.Symbol)

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, topK)
	query := fmt.Sprintf(`
		SELECT chunk_id, document_id, source, source_url, title, section, symbol, body,
		       1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, r.ident(), where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndex, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		if err := rows.Scan(
			&hit.Payload.ChunkID, &hit.Payload.DocumentID, &hit.Payload.Source,
			&hit.Payload.SourceURL, &hit.Payload.Title, &hit.Payload.Section,
			&hit.Payload.Symbol, &hit.Payload.Text, &hit.Score,
		); err != nil {
			return nil, fmt.Errorf("%w: scan hit: %v", domain.ErrIndex, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: search rows: %v", domain.ErrIndex, err)
	}
	return hits, nil
}

// DeleteDocument counts the document's chunks, deletes them and
// returns the pre-deletion count, all in one transaction.
func (r *PgVectorIndex) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin delete: %v", domain.ErrIndex, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var count int
	countSQL := fmt.Sprintf(`SELECT count(*) FROM %s WHERE document_id = $1`, r.ident())
	if err := tx.QueryRow(ctx, countSQL, documentID).Scan(&count); err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count document %s: %v", domain.ErrIndex, documentID, err)
	}
	if count == 0 {
		return 0, nil
	}

	deleteSQL := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, r.ident())
	if _, err := tx.Exec(ctx, deleteSQL, documentID); err != nil {
		return 0, fmt.Errorf("%w: delete document %s: %v", domain.ErrIndex, documentID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit delete: %v", domain.ErrIndex, err)
	}
	return count, nil
}

func (r *PgVectorIndex) ident() string {
	return pgx.Identifier{r.table}.Sanitize()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

var _ domain.VectorIndex = (*PgVectorIndex)(nil)
