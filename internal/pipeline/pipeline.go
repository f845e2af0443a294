// Package pipeline orchestrates one conversational turn: bias check and
// intent routing run concurrently, retrieval grounds the reframed query,
// the assembler builds the prompt, and the generator produces the answer.
// Every stage short of generation degrades gracefully; only generation
// failure fails the turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/ingest"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/prompt"
	"github.com/ashaai/asha/internal/retrieval"
)

// Stage is a turn's position in the processing state machine. Transitions
// only move forward.
type Stage string

const (
	StageReceived    Stage = "received"
	StageBiasChecked Stage = "bias_checked"
	StageRouted      Stage = "routed"
	StageRetrieved   Stage = "retrieved"
	StageAssembled   Stage = "assembled"
	StageGenerated   Stage = "generated"
	StageReturned    Stage = "returned"
)

// Sentinel errors.
var (
	// ErrEmptyMessage indicates a blank user message.
	ErrEmptyMessage = errors.New("empty message")

	// ErrGenerationFailed is the only hard turn failure: the model
	// produced no text. The turn is not appended to history.
	ErrGenerationFailed = errors.New("generation failed")
)

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	SessionID string
	Answer    string

	Intent     intent.Intent
	RouteInfo  intent.RouteInfo
	Assessment bias.Assessment

	// Sources lists document IDs rendered into the prompt.
	Sources       []string
	DocumentsUsed int

	// Degraded is set when retrieval proceeded without index grounding.
	Degraded bool

	// PromptTruncated is set when the budget trimmed context or history.
	PromptTruncated bool

	Stage   Stage
	Elapsed time.Duration
}

// EventLister supplies the upcoming-events fallback for event searches that
// match nothing above threshold.
type EventLister interface {
	Upcoming(ctx context.Context, now time.Time, limit int) ([]ingest.Event, error)
}

// Pipeline wires the turn components together. Safe for concurrent use.
type Pipeline struct {
	classifier    *bias.Classifier
	router        *intent.Router
	retriever     *retrieval.Retriever
	conversations *conversation.Manager
	assembler     *prompt.Assembler
	generator     llm.Generator
	audit         *conversation.Audit
	events        EventLister

	topK   int
	logger log.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEventLister enables the upcoming-events fallback.
func WithEventLister(l EventLister) Option {
	return func(p *Pipeline) { p.events = l }
}

// WithAudit enables best-effort turn persistence.
func WithAudit(a *conversation.Audit) Option {
	return func(p *Pipeline) { p.audit = a }
}

// WithTracer enables span emission per turn.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New creates a Pipeline.
func New(
	classifier *bias.Classifier,
	router *intent.Router,
	retriever *retrieval.Retriever,
	conversations *conversation.Manager,
	assembler *prompt.Assembler,
	generator llm.Generator,
	topK int,
	logger log.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	if topK < 1 {
		topK = 5
	}
	p := &Pipeline{
		classifier:    classifier,
		router:        router,
		retriever:     retriever,
		conversations: conversations,
		assembler:     assembler,
		generator:     generator,
		topK:          topK,
		logger:        logger,
		tracer:        noop.NewTracerProvider().Tracer("pipeline"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Respond processes one user turn for a session. Turns within a session are
// strictly serialized; unrelated sessions run in parallel. The user and
// assistant turns are appended to history together, only after generation
// succeeds.
func (p *Pipeline) Respond(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	unlock, err := p.conversations.LockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := p.tracer.Start(ctx, "pipeline.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	start := p.now()
	res := &TurnResult{SessionID: sessionID, Stage: StageReceived}

	window := p.conversations.Window(sessionID)
	prev := p.conversations.LastIntent(sessionID)

	// Bias assessment and routing are independent; run them concurrently.
	// Both are panic-free and never fail the turn.
	assessCh := make(chan bias.Assessment, 1)
	routeCh := make(chan routed, 1)
	go func() {
		assessCh <- p.classifier.Assess(ctx, message)
	}()
	go func() {
		in, info := p.router.Route(ctx, message, prev)
		routeCh <- routed{intent: in, info: info}
	}()

	res.Assessment = <-assessCh
	res.Stage = StageBiasChecked

	r := <-routeCh
	res.Intent, res.RouteInfo = r.intent, r.info
	res.Stage = StageRouted
	span.SetAttributes(
		attribute.String("turn.intent", string(res.Intent)),
		attribute.Bool("turn.biased", res.Assessment.Biased),
	)

	// Retrieval grounds the neutral form of the query.
	retrieved := p.retriever.Retrieve(ctx, res.Intent, res.Assessment.Reframed, p.topK)
	res.Degraded = retrieved.Degraded
	if res.Intent == intent.EventSearch && len(retrieved.Hits) == 0 && !retrieved.Degraded {
		retrieved.Hits = p.upcomingFallback(ctx)
	}
	res.Stage = StageRetrieved

	payload := p.assembler.Assemble(prompt.Input{
		Query:      message,
		Intent:     res.Intent,
		Assessment: res.Assessment,
		Retrieval:  retrieved,
		History:    window,
	})
	res.Sources = payload.Sources
	res.DocumentsUsed = payload.DocumentsUsed
	res.PromptTruncated = payload.Truncated
	res.Stage = StageAssembled

	answer, err := p.generator.Generate(ctx, payload.System, payload.User)
	if err != nil {
		// The one hard failure: no partial turn enters history.
		p.logger.Error("turn generation failed",
			"session_id", sessionID, "intent", res.Intent, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	res.Answer = answer
	res.Stage = StageGenerated

	userTurn := conversation.NewTurn(conversation.RoleUser, message)
	userTurn.Intent = res.Intent
	userTurn.Bias = &res.Assessment
	p.conversations.Append(sessionID,
		userTurn,
		conversation.NewTurn(conversation.RoleAssistant, answer))

	res.Elapsed = p.now().Sub(start)
	res.Stage = StageReturned

	p.recordTurn(ctx, conversation.Record{
		SessionID:     sessionID,
		UserQuery:     message,
		ReframedQuery: res.Assessment.Reframed,
		Intent:        string(res.Intent),
		BiasDetected:  res.Assessment.Biased,
		BiasCategory:  res.Assessment.Category,
		Degraded:      res.Degraded,
		AssistantText: answer,
		DocumentsUsed: res.DocumentsUsed,
		Elapsed:       res.Elapsed,
	})

	p.logger.Info("turn completed",
		"session_id", sessionID,
		"intent", res.Intent,
		"biased", res.Assessment.Biased,
		"documents", res.DocumentsUsed,
		"degraded", res.Degraded,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (p *Pipeline) recordTurn(ctx context.Context, rec conversation.Record) {
	if p.audit == nil {
		return
	}
	p.audit.Record(ctx, rec)
}

type routed struct {
	intent intent.Intent
	info   intent.RouteInfo
}

// upcomingFallback converts the next few scheduled events into context hits
// when semantic event search found nothing relevant. Best-effort: a listing
// failure just leaves the result empty.
func (p *Pipeline) upcomingFallback(ctx context.Context) []retrieval.Hit {
	if p.events == nil {
		return nil
	}
	events, err := p.events.Upcoming(ctx, p.now(), 3)
	if err != nil {
		p.logger.Warn("upcoming events fallback failed", "error", err)
		return nil
	}

	hits := make([]retrieval.Hit, 0, len(events))
	for _, ev := range events {
		hits = append(hits, retrieval.Hit{
			Document: knowledge.Document{
				ID:         "event-" + ev.ID,
				SourceType: knowledge.SourceTypeEvent,
				Content: fmt.Sprintf("Upcoming event: %s on %s (%s, %s)",
					ev.Title, ev.Date, ev.Type, ev.Mode),
				Metadata: map[string]string{
					"title": ev.Title, "date": ev.Date, "mode": ev.Mode,
				},
			},
		})
	}
	return hits
}
