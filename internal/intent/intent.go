// Package intent classifies user queries into a retrieval intent that
// decides which knowledge source, if any, the retriever consults.
package intent

// Intent is the classified purpose of a user query.
type Intent string

const (
	// JobSearch queries the job listings index.
	JobSearch Intent = "JOB_SEARCH"

	// EventSearch queries the community events index.
	EventSearch Intent = "EVENT_SEARCH"

	// General is career-advice style: no documents retrieved, generation
	// proceeds ungrounded.
	General Intent = "GENERAL"

	// OutOfScope skips retrieval and tells the assembler no context is
	// available.
	OutOfScope Intent = "OUT_OF_SCOPE"
)

// Retrieves reports whether this intent queries a document index.
func (i Intent) Retrieves() bool {
	return i == JobSearch || i == EventSearch
}

// RouteInfo carries routing diagnostics for the turn result.
type RouteInfo struct {
	Confidence float32
	// Method records which layer decided: "keyword", "anaphora",
	// "semantic" or "default".
	Method string
}
