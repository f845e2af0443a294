// Package ingest loads the structured data sources (job listings CSV,
// community events JSON) and indexes them as knowledge documents. When a
// configured data file is missing, each indexer falls back to an embedded
// sample dataset so a fresh checkout works end to end.
package ingest

import (
	"context"

	"github.com/ashaai/asha/internal/knowledge"
)

// Store is the slice of the knowledge store the indexers need.
type Store interface {
	AddBatch(ctx context.Context, docs []knowledge.Document) error
	DeleteBySource(ctx context.Context, sourceType string) (int64, error)
	ListBySource(ctx context.Context, sourceType string, limit int) ([]knowledge.Document, error)
}
