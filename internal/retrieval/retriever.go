// Package retrieval performs semantic search against the knowledge index for
// a routed query, applying relevance and diversity filters to the raw hits.
package retrieval

import (
	"context"

	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/log"
)

// Searcher is the slice of the knowledge store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Hit is one retrieved document with its relevance score.
type Hit struct {
	Document knowledge.Document
	Score    float32
}

// Result is the ordered outcome of one retrieval. Scores are non-increasing
// and document IDs are unique.
type Result struct {
	Hits []Hit

	// Degraded is set when the index or embedder was unavailable and the
	// turn proceeds without grounding.
	Degraded bool
}

// diversityField returns the structured field whose values the diversity
// rule caps, per source type.
func diversityField(sourceType string) string {
	switch sourceType {
	case knowledge.SourceTypeJob:
		return "company"
	case knowledge.SourceTypeEvent:
		return "date"
	default:
		return ""
	}
}

// Retriever wraps the knowledge index with intent dispatch, a minimum
// relevance threshold and the diversity cap. Stateless and safe for
// concurrent use.
type Retriever struct {
	searcher       Searcher
	minScore       float32
	diversityLimit int
	logger         log.Logger
}

// NewRetriever creates a Retriever. diversityLimit is the maximum number of
// hits sharing an identical structured-field value; values below 1 fall back
// to 2.
func NewRetriever(searcher Searcher, minScore float32, diversityLimit int, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	if diversityLimit < 1 {
		diversityLimit = 2
	}
	return &Retriever{
		searcher:       searcher,
		minScore:       minScore,
		diversityLimit: diversityLimit,
		logger:         logger,
	}
}

// Retrieve searches the index matching the intent. General and out-of-scope
// intents return an empty result without touching the index. Index or
// embedder failure degrades to an empty result with the Degraded flag set
// rather than failing the turn.
func (r *Retriever) Retrieve(ctx context.Context, in intent.Intent, query string, topK int) Result {
	if !in.Retrieves() {
		return Result{}
	}

	sourceType := knowledge.SourceTypeJob
	if in == intent.EventSearch {
		sourceType = knowledge.SourceTypeEvent
	}

	// Over-fetch so the diversity rule has candidates to backfill from
	// after capping repeated field values.
	raw, err := r.searcher.Search(ctx, query,
		knowledge.WithTopK(topK*3),
		knowledge.WithSource(sourceType))
	if err != nil {
		r.logger.Warn("retrieval degraded", "intent", in, "error", err)
		return Result{Degraded: true}
	}

	hits := r.filter(raw, sourceType, topK)
	r.logger.Debug("retrieved documents",
		"intent", in, "candidates", len(raw), "kept", len(hits))
	return Result{Hits: hits}
}

// filter drops hits below the relevance threshold, deduplicates IDs, and
// applies the diversity cap: at most diversityLimit hits per identical
// structured-field value. If the cap starves the result below topK, capped
// candidates are backfilled in score order.
func (r *Retriever) filter(raw []knowledge.Result, sourceType string, topK int) []Hit {
	field := diversityField(sourceType)

	seen := make(map[string]bool, len(raw))
	fieldCount := make(map[string]int)

	kept := make([]Hit, 0, topK)
	var overflow []Hit

	for _, res := range raw {
		if res.Similarity < r.minScore {
			continue // raw hits are score-ordered, but don't rely on it
		}
		if seen[res.Document.ID] {
			continue
		}
		seen[res.Document.ID] = true

		hit := Hit{Document: res.Document, Score: res.Similarity}

		value := ""
		if field != "" {
			value = res.Document.Metadata[field]
		}
		if value != "" && fieldCount[value] >= r.diversityLimit {
			overflow = append(overflow, hit)
			continue
		}
		fieldCount[value]++

		kept = append(kept, hit)
		if len(kept) == topK {
			break
		}
	}

	// Backfill from capped candidates when diversity starved the result.
	for _, hit := range overflow {
		if len(kept) >= topK {
			break
		}
		kept = append(kept, hit)
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}

	sortByScore(kept)
	return kept
}

// sortByScore orders hits by descending score. Insertion sort: topK is small.
func sortByScore(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
