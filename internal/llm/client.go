package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/ashaai/asha/internal/config"
	"github.com/ashaai/asha/internal/log"
)

// Client implements Embedder and Generator on top of Genkit.
type Client struct {
	genkit    *genkit.Genkit
	embedder  ai.Embedder
	modelName string

	rateLimiter *rate.Limiter
	retryConfig RetryConfig
	breaker     *CircuitBreaker
	logger      log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter sets the per-client rate limiter applied to every
// generation attempt. Pass nil to disable rate limiting.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.rateLimiter = l }
}

// WithRetryConfig overrides the retry behavior for generation calls.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithCircuitBreaker overrides the circuit breaker guarding generation.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New initializes Genkit with the configured provider and returns a Client.
// Supports gemini (default), ollama, and openai providers.
func New(ctx context.Context, cfg *config.Config, logger log.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	var (
		g        *genkit.Genkit
		embedder ai.Embedder
	)

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.OllamaHost)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		embedder = genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
	}

	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	c := &Client{
		genkit:      g,
		embedder:    embedder,
		modelName:   cfg.FullModelName(),
		rateLimiter: rate.NewLimiter(rate.Limit(2), 5),
		retryConfig: DefaultRetryConfig(),
		breaker:     NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Embed converts texts into vectors, one per input text, in order.
func (c *Client) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			ErrEmptyEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

// Generate produces a completion, guarded by the circuit breaker and the
// retry loop. The breaker is consulted once per call, not per attempt, so a
// half-open probe gets its full retry budget.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", fmt.Errorf("generation rejected: %w", err)
	}

	resp, err := c.executeWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
		opts := []ai.GenerateOption{
			ai.WithModelName(c.modelName),
			ai.WithPrompt(prompt),
		}
		if system != "" {
			opts = append(opts, ai.WithSystem(system))
		}
		return genkit.Generate(ctx, c.genkit, opts...)
	})
	if err != nil {
		c.breaker.Failure()
		return "", err
	}

	text := resp.Text()
	if text == "" {
		c.breaker.Failure()
		return "", ErrEmptyResponse
	}

	c.breaker.Success()
	return text, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() CircuitState {
	return c.breaker.State()
}
