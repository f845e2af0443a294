// Package llm wraps the Genkit model and embedder behind small interfaces
// the rest of the application consumes. Generation calls are guarded by a
// token-bucket rate limiter, exponential-backoff retry for transient provider
// errors, and a circuit breaker that sheds load when the provider is down.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("model returned empty response")

	// ErrEmptyEmbedding indicates the embedder returned no vectors.
	ErrEmptyEmbedding = errors.New("embedder returned no vectors")
)

// Embedder converts texts into dense vectors. Implementations must return
// one vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts ...string) ([][]float32, error)
}

// Generator produces a model completion for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
