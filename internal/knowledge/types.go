package knowledge

import "time"

// Source type constants for knowledge documents.
const (
	// SourceTypeJob represents an indexed job listing.
	SourceTypeJob = "job"

	// SourceTypeEvent represents an indexed community event or session.
	SourceTypeEvent = "event"

	// SourceTypeFact represents curated empowerment facts used when
	// reframing biased queries.
	SourceTypeFact = "fact"
)

// VectorDimension is the embedding width stored in the documents table.
// It matches text-embedding-004 and the pgvector column in db/migrations.
const VectorDimension = 768

// Document represents an indexed knowledge document.
type Document struct {
	ID         string            // Unique identifier, stable across re-indexing
	SourceType string            // One of the SourceType constants
	Content    string            // Text that was embedded
	Metadata   map[string]string // Structured fields (company, location, ...)
	CreatedAt  time.Time
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK       int
	sourceType string
	timeout    time.Duration
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithSource restricts search to documents of the given source type.
func WithSource(sourceType string) SearchOption {
	return func(c *searchConfig) {
		c.sourceType = sourceType
	}
}

// WithTimeout overrides the per-search timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

// buildSearchConfig applies search options over the defaults.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
