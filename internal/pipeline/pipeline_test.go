package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/ingest"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/pipeline"
	"github.com/ashaai/asha/internal/prompt"
	"github.com/ashaai/asha/internal/retrieval"
	"github.com/ashaai/asha/internal/testutil"
)

type fakeSearcher struct {
	results []knowledge.Result
	err     error

	calls   int
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	f.calls++
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeEvents struct {
	events []ingest.Event
	err    error
}

func (f *fakeEvents) Upcoming(_ context.Context, _ time.Time, limit int) ([]ingest.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func jobResult(id, title, company string, score float32) knowledge.Result {
	return knowledge.Result{
		Document: knowledge.Document{
			ID:         id,
			SourceType: knowledge.SourceTypeJob,
			Content:    "Job Title: " + title + "\nCompany: " + company,
			Metadata: map[string]string{
				"job_title": title,
				"company":   company,
			},
		},
		Similarity: score,
	}
}

type deps struct {
	searcher  *fakeSearcher
	generator *testutil.MockGenerator
	manager   *conversation.Manager
	events    *fakeEvents
}

func newPipeline(t *testing.T, d *deps) *pipeline.Pipeline {
	t.Helper()
	embedder := &testutil.MockEmbedder{}
	classifier := bias.NewClassifier(embedder, 0.62, nil)
	router := intent.NewRouter(embedder, nil)
	retriever := retrieval.NewRetriever(d.searcher, 0.35, 2, nil)
	d.manager = conversation.NewManager(6, nil)
	assembler := prompt.NewAssembler(8000)

	opts := []pipeline.Option{}
	if d.events != nil {
		opts = append(opts, pipeline.WithEventLister(d.events))
	}
	return pipeline.New(classifier, router, retriever, d.manager,
		assembler, d.generator, 5, nil, opts...)
}

func TestRespondGroundedJobQuery(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher: &fakeSearcher{results: []knowledge.Result{
			jobResult("job-1", "Marketing Manager", "TechCorp", 0.91),
			jobResult("job-2", "Marketing Analyst", "FinServe", 0.84),
		}},
		generator: &testutil.MockGenerator{Response: "Here are two marketing openings."},
	}
	p := newPipeline(t, d)

	res, err := p.Respond(context.Background(), "s1", "List job openings in marketing")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Stage != pipeline.StageReturned {
		t.Errorf("stage = %q, want %q", res.Stage, pipeline.StageReturned)
	}
	if res.Intent != intent.JobSearch {
		t.Errorf("intent = %q, want %q", res.Intent, intent.JobSearch)
	}
	if res.Assessment.Biased {
		t.Error("neutral query flagged as biased")
	}
	if res.Answer != "Here are two marketing openings." {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Degraded {
		t.Error("turn marked degraded with a healthy index")
	}
	if res.DocumentsUsed != 2 {
		t.Errorf("documents used = %d, want 2", res.DocumentsUsed)
	}
	if len(res.Sources) != 2 || res.Sources[0] != "job-1" {
		t.Errorf("sources = %v", res.Sources)
	}
	if got := d.generator.LastPrompt(); !strings.Contains(got, "Marketing Manager") {
		t.Errorf("prompt missing retrieved context:\n%s", got)
	}
	if d.manager.Len("s1") != 2 {
		t.Errorf("history length = %d, want 2", d.manager.Len("s1"))
	}
}

func TestRespondBiasedQueryReframesRetrieval(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher: &fakeSearcher{results: []knowledge.Result{
			jobResult("job-7", "Engineering Lead", "TechCorp", 0.72),
		}},
		generator: &testutil.MockGenerator{Response: "Research shows diverse teams outperform."},
	}
	p := newPipeline(t, d)

	res, err := p.Respond(context.Background(), "s1",
		"Why should we even hire women for tech jobs?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !res.Assessment.Biased {
		t.Fatal("biased query not flagged")
	}
	if res.Assessment.Category != bias.CategoryHiringJustification {
		t.Errorf("category = %q", res.Assessment.Category)
	}

	reframed := "What are the performance benefits of gender-diverse tech teams?"
	if res.Assessment.Reframed != reframed {
		t.Errorf("reframed = %q, want %q", res.Assessment.Reframed, reframed)
	}
	if len(d.searcher.queries) != 1 || d.searcher.queries[0] != reframed {
		t.Errorf("index searched with %v, want the reframed query", d.searcher.queries)
	}
	got := d.generator.LastPrompt()
	if !strings.Contains(got, "User question: "+reframed) {
		t.Errorf("prompt does not ask the reframed question:\n%s", got)
	}
	if strings.Contains(got, "User question: Why should we even hire") {
		t.Errorf("prompt carries the original biased question:\n%s", got)
	}
	if !strings.Contains(got, "hiring-justification") {
		t.Errorf("prompt missing bias directive:\n%s", got)
	}
}

func TestRespondDegradedIndexStillAnswers(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher:  &fakeSearcher{err: errors.New("connection refused")},
		generator: &testutil.MockGenerator{Response: "I cannot show specific listings right now."},
	}
	p := newPipeline(t, d)

	res, err := p.Respond(context.Background(), "s1", "List job openings in marketing")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !res.Degraded {
		t.Error("index failure did not mark the turn degraded")
	}
	if res.Stage != pipeline.StageReturned {
		t.Errorf("stage = %q, want %q", res.Stage, pipeline.StageReturned)
	}
	if got := d.generator.LastPrompt(); !strings.Contains(got, "temporarily unavailable") {
		t.Errorf("prompt missing degraded notice:\n%s", got)
	}
	if d.manager.Len("s1") != 2 {
		t.Errorf("history length = %d, want 2", d.manager.Len("s1"))
	}
}

func TestRespondGenerationFailureIsHard(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher:  &fakeSearcher{},
		generator: &testutil.MockGenerator{Err: errors.New("model overloaded")},
	}
	p := newPipeline(t, d)

	_, err := p.Respond(context.Background(), "s1", "List job openings in marketing")
	if !errors.Is(err, pipeline.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if d.manager.Len("s1") != 0 {
		t.Errorf("failed turn appended to history, len = %d", d.manager.Len("s1"))
	}
}

func TestRespondEventFallbackListsUpcoming(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher:  &fakeSearcher{},
		generator: &testutil.MockGenerator{Response: "Two sessions are coming up."},
		events: &fakeEvents{events: []ingest.Event{
			{ID: "11", Title: "Resume Workshop", Date: "2026-09-25", Type: "workshop", Mode: "online"},
			{ID: "12", Title: "Leadership Meetup", Date: "2026-10-03", Type: "meetup", Mode: "in-person"},
		}},
	}
	p := newPipeline(t, d)

	res, err := p.Respond(context.Background(), "s1", "are there any events this week")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Intent != intent.EventSearch {
		t.Errorf("intent = %q, want %q", res.Intent, intent.EventSearch)
	}
	if res.DocumentsUsed != 2 {
		t.Errorf("documents used = %d, want 2", res.DocumentsUsed)
	}
	if got := d.generator.LastPrompt(); !strings.Contains(got, "Resume Workshop") {
		t.Errorf("prompt missing fallback events:\n%s", got)
	}
}

func TestRespondOutOfScopeSkipsIndex(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher:  &fakeSearcher{},
		generator: &testutil.MockGenerator{Response: "That is outside what I can help with."},
	}
	p := newPipeline(t, d)

	res, err := p.Respond(context.Background(), "s1", "what will the weather be tomorrow")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.Intent != intent.OutOfScope {
		t.Errorf("intent = %q, want %q", res.Intent, intent.OutOfScope)
	}
	if d.searcher.calls != 0 {
		t.Errorf("index searched %d times for an out-of-scope query", d.searcher.calls)
	}
}

func TestRespondEmptyMessage(t *testing.T) {
	t.Parallel()

	d := &deps{searcher: &fakeSearcher{}, generator: &testutil.MockGenerator{Response: "x"}}
	p := newPipeline(t, d)

	if _, err := p.Respond(context.Background(), "s1", "   "); !errors.Is(err, pipeline.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestRespondAnaphoraFollowsPriorIntent(t *testing.T) {
	t.Parallel()

	d := &deps{
		searcher: &fakeSearcher{results: []knowledge.Result{
			jobResult("job-3", "Sales Manager", "RetailCo", 0.8),
		}},
		generator: &testutil.MockGenerator{Response: "Sure, here is another."},
	}
	p := newPipeline(t, d)

	if _, err := p.Respond(context.Background(), "s1", "List job openings in marketing"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	res, err := p.Respond(context.Background(), "s1", "show me more like that")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if res.Intent != intent.JobSearch {
		t.Errorf("follow-up intent = %q, want %q", res.Intent, intent.JobSearch)
	}
}
