// Package app initializes and wires the application components: database
// pool with migrations, model client, document store, classifier, router,
// retriever, conversation state, and the turn pipeline.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashaai/asha/internal/api"
	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/config"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/ingest"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/pipeline"
	"github.com/ashaai/asha/internal/prompt"
	"github.com/ashaai/asha/internal/retrieval"
)

// App is the application container. Build it with Setup and release with
// Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool      *pgxpool.Pool
	LLM       *llm.Client
	Knowledge *knowledge.Store

	Classifier    *bias.Classifier
	Router        *intent.Router
	Retriever     *retrieval.Retriever
	Conversations *conversation.Manager
	Assembler     *prompt.Assembler
	Pipeline      *pipeline.Pipeline

	Jobs   *ingest.JobIndexer
	Events *ingest.EventIndexer

	Tracer trace.Tracer

	traceShutdown func(context.Context) error
	cancel        context.CancelFunc
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	a.Logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
		defer cancel()
		if err := a.traceShutdown(ctx); err != nil {
			a.Logger.Warn("flushing traces", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}

// Server builds the HTTP API server from the wired components.
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(api.ServerConfig{
		Logger:      a.Logger,
		Responder:   a.Pipeline,
		Bias:        a.Classifier,
		Searcher:    a.Knowledge,
		Events:      a.Events,
		Pool:        a.Pool,
		CORSOrigins: a.Config.CORSOrigins,
		TrustProxy:  a.Config.TrustProxy,
		RateBurst:   a.Config.RateBurst,
	})
}

// Reindex loads the configured job and event sources into the document
// index, replacing any previous documents from those sources.
func (a *App) Reindex(ctx context.Context) (jobs, events int, err error) {
	jobs, err = a.Jobs.Index(ctx, a.Config.JobsCSV)
	if err != nil {
		return 0, 0, err
	}
	events, err = a.Events.Index(ctx, a.Config.EventsJSON)
	if err != nil {
		return jobs, 0, err
	}
	return jobs, events, nil
}
