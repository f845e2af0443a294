package bias

import (
	"context"
	"sync"

	"github.com/ashaai/asha/internal/llm"
	"github.com/ashaai/asha/internal/log"
)

// Classifier assesses queries for gender-biased framing. It is stateless per
// query and safe for concurrent use; the exemplar embeddings are computed
// once on first use.
type Classifier struct {
	embedder  llm.Embedder
	threshold float32
	logger    log.Logger

	mu           sync.Mutex
	exemplarVecs [][]float32
}

// NewClassifier creates a Classifier. The embedder powers the semantic
// fallback layer; pass nil to run lexical-only. Threshold is the cosine
// similarity above which an exemplar match counts as bias.
func NewClassifier(embedder llm.Embedder, threshold float32, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Classifier{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// Assess runs the layered check on a query. It never fails the turn: an
// embedder outage degrades the semantic layer to a clean verdict from the
// lexical layer alone.
func (c *Classifier) Assess(ctx context.Context, query string) Assessment {
	if r, ok := matchRules(query); ok {
		return c.build(query, r.category, r.severity, "lexical")
	}

	category, ok := c.semanticMatch(ctx, query)
	if !ok {
		return Assessment{
			Original: query,
			Reframed: query,
		}
	}
	return c.build(query, category, "medium", "semantic")
}

// build assembles the positive verdict, including the reframed query and the
// uncertain-reframe fallback.
func (c *Classifier) build(query, category, severity, layer string) Assessment {
	a := Assessment{
		Biased:   true,
		Category: category,
		Severity: severity,
		Original: query,
		Layer:    layer,
	}

	topic := extractTopic(query)
	reframed, confident := reframe(category, topic)
	if confident {
		a.Reframed = reframed
		a.Rationale = "The question contains a gendered assumption; answering the neutral form of the underlying information need instead."
	} else {
		a.Reframed = query
		a.ReframeUncertain = true
		a.Rationale = "The question contains a gendered assumption, but no confident neutral rewrite was possible; responding with constructive framing instead of the biased premise."
	}

	c.logger.Debug("bias detected",
		"category", category,
		"severity", severity,
		"layer", layer,
		"reframe_uncertain", a.ReframeUncertain,
	)
	return a
}

// semanticMatch compares the query embedding against the exemplar bank.
// Returns the best-matching category when similarity clears the threshold.
func (c *Classifier) semanticMatch(ctx context.Context, query string) (string, bool) {
	if c.embedder == nil {
		return "", false
	}

	vecs, err := c.exemplarEmbeddings(ctx)
	if err != nil {
		c.logger.Warn("semantic bias layer unavailable", "error", err)
		return "", false
	}

	queryVecs, err := c.embedder.Embed(ctx, query)
	if err != nil || len(queryVecs) == 0 {
		c.logger.Warn("embedding query for bias check failed", "error", err)
		return "", false
	}

	var (
		bestScore    float32
		bestCategory string
	)
	for i, vec := range vecs {
		score := llm.CosineSimilarity(queryVecs[0], vec)
		if score > bestScore {
			bestScore = score
			bestCategory = exemplars[i].category
		}
	}

	if bestScore < c.threshold {
		return "", false
	}
	c.logger.Debug("semantic bias match", "category", bestCategory, "score", bestScore)
	return bestCategory, true
}

// exemplarEmbeddings returns the cached exemplar vectors, computing them on
// first use. A failed computation is not cached, so a transient embedder
// outage only disables the semantic layer until the next query.
func (c *Classifier) exemplarEmbeddings(ctx context.Context) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exemplarVecs != nil {
		return c.exemplarVecs, nil
	}

	texts := make([]string, len(exemplars))
	for i, e := range exemplars {
		texts[i] = e.text
	}
	vecs, err := c.embedder.Embed(ctx, texts...)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(exemplars) {
		return nil, llm.ErrEmptyEmbedding
	}
	c.exemplarVecs = vecs
	return vecs, nil
}
