package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashaai/asha/db"
	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/config"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/ingest"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
	"github.com/ashaai/asha/internal/observability"
	"github.com/ashaai/asha/internal/pipeline"
	"github.com/ashaai/asha/internal/prompt"
	"github.com/ashaai/asha/internal/retrieval"
)

const shutdownFlushTimeout = 5 * time.Second

// Setup creates and initializes the application. On failure, everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	tracer, traceShutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, err
	}
	a.Tracer = tracer
	a.traceShutdown = traceShutdown

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	client, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing model client: %w", err)
	}
	a.LLM = client

	a.Knowledge = knowledge.New(pool, client, logger)
	a.Jobs = ingest.NewJobIndexer(a.Knowledge, logger)
	a.Events = ingest.NewEventIndexer(a.Knowledge, logger)

	a.Classifier = bias.NewClassifier(client, cfg.BiasThreshold, logger)
	a.Router = intent.NewRouter(client, logger)
	a.Retriever = retrieval.NewRetriever(a.Knowledge, cfg.MinScore, cfg.DiversityLimit, logger)
	a.Conversations = conversation.NewManager(cfg.WindowTurns, logger)
	a.Assembler = prompt.NewAssembler(cfg.PromptBudget)

	audit := conversation.NewAudit(pool, logger)
	a.Pipeline = pipeline.New(
		a.Classifier,
		a.Router,
		a.Retriever,
		a.Conversations,
		a.Assembler,
		client,
		cfg.TopK,
		logger,
		pipeline.WithEventLister(a.Events),
		pipeline.WithAudit(audit),
		pipeline.WithTracer(tracer),
	)

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// providePool runs migrations and opens the connection pool.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
