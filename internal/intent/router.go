package intent

import (
	"context"
	"strings"
	"sync"

	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
)

// Cue word lists for the keyword layer. Matched against lowercased
// whitespace-split words, with a few multi-word phrases checked as
// substrings.
var (
	jobCues = []string{
		"job", "jobs", "opening", "openings", "vacancy", "vacancies",
		"position", "positions", "hiring", "salary", "employer", "apply",
		"recruitment", "internship", "internships",
	}

	eventCues = []string{
		"event", "events", "session", "sessions", "workshop", "workshops",
		"webinar", "webinars", "meetup", "meetups", "seminar", "seminars",
		"conference", "mentorship", "networking",
	}

	generalCues = []string{
		"advice", "career", "interview", "resume", "skills", "upskill",
		"negotiate", "mentor", "transition", "promotion",
	}

	anaphoraPhrases = []string{
		"more like that", "another one", "show me more", "any others",
		"more of those", "similar ones", "and more", "anything else like",
	}
)

// exemplarQueries back the semantic fallback layer, labeled per intent.
var exemplarQueries = []struct {
	text   string
	intent Intent
}{
	{"show me open marketing positions in bangalore", JobSearch},
	{"find software engineer jobs with remote option", JobSearch},
	{"i am looking for data analyst roles with flexible hours", JobSearch},
	{"which companies are hiring product managers right now", JobSearch},
	{"what workshops are coming up this month", EventSearch},
	{"are there any mentorship sessions scheduled soon", EventSearch},
	{"upcoming networking meetups for professionals", EventSearch},
	{"when is the next resume writing webinar", EventSearch},
	{"how do i prepare for an interview after a career break", General},
	{"tips for negotiating a higher salary offer", General},
	{"how can i improve my resume for senior roles", General},
	{"what skills should i learn to move into management", General},
}

// semanticThreshold is the minimum exemplar similarity for the semantic
// layer to produce a verdict; below it the query is out of scope unless
// career-advice cues appear.
const semanticThreshold = 0.35

// Router classifies queries. Safe for concurrent use; exemplar embeddings
// are computed once on first use.
type Router struct {
	embedder llm.Embedder
	logger   log.Logger

	mu           sync.Mutex
	exemplarVecs [][]float32
}

// NewRouter creates a Router. A nil embedder disables the semantic layer.
func NewRouter(embedder llm.Embedder, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{embedder: embedder, logger: logger}
}

// Route classifies the query. prev is the prior turn's intent (empty Intent
// for the first turn); it breaks ties when the query refers back
// anaphorically to earlier results. Routing is deterministic: the same query
// with the same prior intent always yields the same verdict.
func (r *Router) Route(ctx context.Context, query string, prev Intent) (Intent, RouteInfo) {
	lower := strings.ToLower(query)
	words := tokenize(lower)

	jobScore := countCues(words, jobCues)
	eventScore := countCues(words, eventCues)

	// Anaphoric reference carries the prior intent forward on a tie.
	if jobScore == eventScore && isAnaphoric(lower) && (prev == JobSearch || prev == EventSearch) {
		return prev, RouteInfo{Confidence: 0.9, Method: "anaphora"}
	}

	switch {
	case jobScore > eventScore:
		return JobSearch, RouteInfo{Confidence: keywordConfidence(jobScore), Method: "keyword"}
	case eventScore > jobScore:
		return EventSearch, RouteInfo{Confidence: keywordConfidence(eventScore), Method: "keyword"}
	case jobScore > 0:
		// Equal nonzero scores: let the semantic layer arbitrate.
	}

	if intent, score, ok := r.semanticRoute(ctx, query); ok {
		return intent, RouteInfo{Confidence: score, Method: "semantic"}
	}

	if countCues(words, generalCues) > 0 {
		return General, RouteInfo{Confidence: 0.5, Method: "keyword"}
	}
	return OutOfScope, RouteInfo{Confidence: 0, Method: "default"}
}

// semanticRoute matches the query against the labeled exemplars. ok is false
// when the best score is below threshold or the embedder is unavailable; an
// embedder failure reports General per the ambiguous-intent recovery rule.
func (r *Router) semanticRoute(ctx context.Context, query string) (Intent, float32, bool) {
	if r.embedder == nil {
		return "", 0, false
	}

	vecs, err := r.exemplarEmbeddings(ctx)
	if err != nil {
		r.logger.Warn("semantic routing unavailable, defaulting to general", "error", err)
		return General, 0, true
	}

	queryVecs, err := r.embedder.Embed(ctx, query)
	if err != nil || len(queryVecs) == 0 {
		r.logger.Warn("embedding query for routing failed, defaulting to general", "error", err)
		return General, 0, true
	}

	var (
		bestScore  float32
		bestIntent Intent
	)
	for i, vec := range vecs {
		score := llm.CosineSimilarity(queryVecs[0], vec)
		if score > bestScore {
			bestScore = score
			bestIntent = exemplarQueries[i].intent
		}
	}

	if bestScore < semanticThreshold {
		return "", bestScore, false
	}
	r.logger.Debug("semantic route", "intent", bestIntent, "score", bestScore)
	return bestIntent, bestScore, true
}

func (r *Router) exemplarEmbeddings(ctx context.Context) ([][]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exemplarVecs != nil {
		return r.exemplarVecs, nil
	}

	texts := make([]string, len(exemplarQueries))
	for i, e := range exemplarQueries {
		texts[i] = e.text
	}
	vecs, err := r.embedder.Embed(ctx, texts...)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(exemplarQueries) {
		return nil, llm.ErrEmptyEmbedding
	}
	r.exemplarVecs = vecs
	return vecs, nil
}

func tokenize(lower string) []string {
	fields := strings.Fields(lower)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.Trim(f, ".,!?;:'\"()"))
	}
	return out
}

func countCues(words []string, cues []string) int {
	cueSet := make(map[string]bool, len(cues))
	for _, c := range cues {
		cueSet[c] = true
	}
	n := 0
	for _, w := range words {
		if cueSet[w] {
			n++
		}
	}
	return n
}

func isAnaphoric(lower string) bool {
	for _, p := range anaphoraPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func keywordConfidence(score int) float32 {
	c := 0.5 + 0.2*float32(score)
	if c > 1 {
		return 1
	}
	return c
}
