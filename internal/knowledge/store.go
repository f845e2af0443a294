// Package knowledge manages the document index backing retrieval. Documents
// are embedded once at ingestion time and searched with pgvector cosine
// similarity.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
)

// ErrEmptyIndex indicates the documents table holds no rows for the
// requested source type.
var ErrEmptyIndex = errors.New("document index is empty")

// DB is the subset of pgxpool.Pool the store needs. Defined here, by the
// consumer, so tests can substitute a fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages knowledge documents with vector search.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	db       DB
	embedder llm.Embedder
	logger   log.Logger
}

// New creates a Store. A nil logger gets a no-op logger.
func New(db DB, embedder llm.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds and upserts a single document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	return s.AddBatch(ctx, []Document{doc})
}

// AddBatch embeds all documents in one embedder call and upserts them.
// Re-indexing the same IDs replaces content and embedding in place.
func (s *Store) AddBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts...)
	if err != nil {
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}

	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		_, err = s.db.Exec(ctx, `
			INSERT INTO documents (id, source_type, content, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				source_type = EXCLUDED.source_type,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			doc.ID, doc.SourceType, doc.Content,
			pgvector.NewVector(vectors[i]), metadataJSON, createdAt)
		if err != nil {
			return fmt.Errorf("upserting document %q: %w", doc.ID, err)
		}
	}

	s.logger.Debug("indexed documents", "count", len(docs))
	return nil
}

// Search embeds the query and returns the nearest documents ordered by
// cosine similarity, highest first. A per-search timeout keeps a slow
// vector scan from blocking the turn.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vectors, err := s.embedder.Embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, llm.ErrEmptyEmbedding
	}
	queryVec := pgvector.NewVector(vectors[0])

	var (
		rows pgx.Rows
	)
	if cfg.sourceType != "" {
		rows, err = s.db.Query(queryCtx, `
			SELECT id, source_type, content, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM documents
			WHERE source_type = $2
			ORDER BY embedding <=> $1
			LIMIT $3`,
			queryVec, cfg.sourceType, cfg.topK)
	} else {
		rows, err = s.db.Query(queryCtx, `
			SELECT id, source_type, content, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM documents
			ORDER BY embedding <=> $1
			LIMIT $2`,
			queryVec, cfg.topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return s.scanResults(rows)
}

// Count returns the number of indexed documents, optionally restricted to a
// source type (empty string counts everything).
func (s *Store) Count(ctx context.Context, sourceType string) (int, error) {
	var count int64
	var err error
	if sourceType != "" {
		err = s.db.QueryRow(ctx,
			`SELECT count(*) FROM documents WHERE source_type = $1`, sourceType).Scan(&count)
	} else {
		err = s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return int(count), nil
}

// CheckReady reports whether the index can serve searches. Returns
// ErrEmptyIndex when no documents have been indexed yet.
func (s *Store) CheckReady(ctx context.Context) error {
	count, err := s.Count(ctx, "")
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEmptyIndex
	}
	return nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySource removes every document of a source type. Reindexing a data
// file calls this first so listings removed upstream disappear from search.
func (s *Store) DeleteBySource(ctx context.Context, sourceType string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE source_type = $1`, sourceType)
	if err != nil {
		return 0, fmt.Errorf("deleting %q documents: %w", sourceType, err)
	}
	return tag.RowsAffected(), nil
}

// ListBySource lists documents of a source type, newest first, without
// similarity ranking. Used by the browse endpoints.
func (s *Store) ListBySource(ctx context.Context, sourceType string, limit int) ([]Document, error) {
	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}
	switch sourceType {
	case SourceTypeJob, SourceTypeEvent, SourceTypeFact:
	default:
		return nil, fmt.Errorf("invalid source type %q", sourceType)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, source_type, content, metadata, created_at
		FROM documents
		WHERE source_type = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing %q documents: %w", sourceType, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *Store) scanResults(rows pgx.Rows) ([]Result, error) {
	results := make([]Result, 0, 8)
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
			similarity   float32
		)
		if err := rows.Scan(&doc.ID, &doc.SourceType, &doc.Content,
			&metadataJSON, &doc.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		doc.Metadata = s.parseMetadata(doc.ID, metadataJSON)
		results = append(results, Result{Document: doc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}
	return results, nil
}

func (s *Store) scanDocument(rows pgx.Rows) (Document, error) {
	var (
		doc          Document
		metadataJSON []byte
	)
	if err := rows.Scan(&doc.ID, &doc.SourceType, &doc.Content,
		&metadataJSON, &doc.CreatedAt); err != nil {
		return Document{}, fmt.Errorf("scanning document row: %w", err)
	}
	doc.Metadata = s.parseMetadata(doc.ID, metadataJSON)
	return doc, nil
}

// parseMetadata tolerates malformed rows: a document with bad metadata still
// surfaces in results rather than failing the whole search.
func (s *Store) parseMetadata(docID string, raw []byte) map[string]string {
	metadata := make(map[string]string)
	if len(raw) == 0 {
		return metadata
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", docID, "error", err)
		return make(map[string]string)
	}
	return metadata
}
