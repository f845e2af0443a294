package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/testutil"
)

func newTestRouter() *Router {
	return NewRouter(&testutil.MockEmbedder{Dim: 64}, log.NewNop())
}

func TestRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		prev  Intent
		want  Intent
	}{
		{
			name:  "job keyword",
			query: "List job openings in marketing",
			want:  JobSearch,
		},
		{
			name:  "job hiring cue",
			query: "which companies are hiring in pune",
			want:  JobSearch,
		},
		{
			name:  "event keyword",
			query: "any workshops or networking events this month?",
			want:  EventSearch,
		},
		{
			name:  "mentorship cue",
			query: "is there a mentorship session next week",
			want:  EventSearch,
		},
		{
			name:  "anaphora carries job intent",
			query: "show me more like that",
			prev:  JobSearch,
			want:  JobSearch,
		},
		{
			name:  "anaphora carries event intent",
			query: "another one please, more like that",
			prev:  EventSearch,
			want:  EventSearch,
		},
		{
			name:  "general advice",
			query: "how should i plan my career transition",
			want:  General,
		},
		{
			name:  "out of scope",
			query: "what is the weather today",
			want:  OutOfScope,
		},
	}

	r := newTestRouter()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, info := r.Route(ctx, tt.query, tt.prev)
			if got != tt.want {
				t.Errorf("Route(%q, prev=%q) = %q (method=%s), want %q",
					tt.query, tt.prev, got, info.Method, tt.want)
			}
		})
	}
}

func TestRouteIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	ctx := context.Background()

	queries := []string{
		"List job openings in marketing",
		"any workshops this month",
		"how do i negotiate salary",
		"what is the weather today",
	}
	for _, q := range queries {
		first, _ := r.Route(ctx, q, "")
		for range 3 {
			again, _ := r.Route(ctx, q, "")
			if again != first {
				t.Errorf("Route(%q) not idempotent: %q then %q", q, first, again)
			}
		}
	}
}

func TestRouteAnaphoraRequiresPriorRetrievalIntent(t *testing.T) {
	t.Parallel()

	r := newTestRouter()

	got, info := r.Route(context.Background(), "show me more like that", General)
	if info.Method == "anaphora" {
		t.Errorf("anaphora tie-break fired with prior intent %q (got %q)", General, got)
	}
}

func TestRouteEmbedderFailureDefaultsToGeneral(t *testing.T) {
	t.Parallel()

	embedder := &testutil.MockEmbedder{Err: errors.New("embedding service down")}
	r := NewRouter(embedder, log.NewNop())

	// No keyword cues, so the router reaches the semantic layer and must
	// recover to General rather than fail or go out of scope.
	got, _ := r.Route(context.Background(), "tell me something helpful about growth", "")
	if got != General {
		t.Errorf("Route() with failing embedder = %q, want %q", got, General)
	}
}

func TestRetrieves(t *testing.T) {
	t.Parallel()

	if !JobSearch.Retrieves() || !EventSearch.Retrieves() {
		t.Error("retrieval intents must report Retrieves() = true")
	}
	if General.Retrieves() || OutOfScope.Retrieves() {
		t.Error("non-retrieval intents must report Retrieves() = false")
	}
}
