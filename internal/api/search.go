package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/pipeline"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// Searcher runs semantic search over the document index. Implemented by
// knowledge.Store.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// SearchResult is one matched document in a jobs or events listing.
type SearchResult struct {
	ID         string            `json:"id"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// SearchResponse wraps a jobs or events search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

type searchHandler struct {
	searcher Searcher
	lister   pipeline.EventLister
	logger   log.Logger
	now      func() time.Time
}

// jobs handles GET /api/v1/jobs?query=...&limit=N.
func (h *searchHandler) jobs(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, knowledge.SourceTypeJob)
}

// events handles GET /api/v1/events. With a query parameter it searches the
// index; without one it lists upcoming events by date.
func (h *searchHandler) events(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("query") != "" || h.lister == nil {
		h.search(w, r, knowledge.SourceTypeEvent)
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))
	events, err := h.lister.Upcoming(r.Context(), h.now(), limit)
	if err != nil {
		h.logger.Error("listing upcoming events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list events", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	}, h.logger)
}

func (h *searchHandler) search(w http.ResponseWriter, r *http.Request, sourceType string) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter is required", h.logger)
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	results, err := h.searcher.Search(r.Context(), query,
		knowledge.WithTopK(limit), knowledge.WithSource(sourceType))
	if err != nil {
		h.logger.Error("index search failed", "error", err, "source_type", sourceType)
		writeError(w, http.StatusServiceUnavailable, "index_unavailable", "the search index is unavailable", h.logger)
		return
	}

	resp := SearchResponse{Query: query, Count: len(results), Results: make([]SearchResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, SearchResult{
			ID:         res.Document.ID,
			Similarity: res.Similarity,
			Metadata:   res.Document.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultSearchLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultSearchLimit
	}
	return min(n, maxSearchLimit)
}
