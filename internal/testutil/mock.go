package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// MockEmbedder is a deterministic embedder for tests. Each word hashes into
// a fixed bucket of the output vector, so cosine similarity between two
// embeddings tracks their word overlap: identical texts score 1.0, disjoint
// texts score near 0. No network, no randomness.
type MockEmbedder struct {
	// Dim is the vector width. Zero means 768, matching the documents
	// table schema.
	Dim int

	// Err, when set, is returned from every Embed call.
	Err error

	mu    sync.Mutex
	calls int
}

// Embed implements llm.Embedder.
func (m *MockEmbedder) Embed(_ context.Context, texts ...string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	dim := m.Dim
	if dim == 0 {
		dim = 768
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,!?;:'\"()")
			if word == "" {
				continue
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[int(h.Sum32())%dim]++
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// MockGenerator is a canned generator for tests. It records each prompt and
// returns Response, or Err when set.
type MockGenerator struct {
	Response string
	Err      error

	mu      sync.Mutex
	Systems []string
	Prompts []string
}

// Generate implements llm.Generator.
func (m *MockGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.Systems = append(m.Systems, system)
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.Response == "" {
		return "mock response", nil
	}
	return m.Response, nil
}

// LastPrompt returns the most recent prompt, or "" when none were recorded.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
