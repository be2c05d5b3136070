package service

import (
	"context"
	"strings"
	"sync"

	"github.com/ragtune/ragtune/internal/port"
)

// mockProvider implements port.AIProvider for tests with deterministic
// embeddings and scriptable generation.
type mockProvider struct {
	mu sync.Mutex

	embedFn    func(text string) []float32
	generateFn func(req port.GenerateRequest) (string, error)
	available  bool

	embedCalls    int
	batchCalls    int
	generateCalls int

	batchErr error
	dropOne  bool // return one vector too few from EmbedBatch
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		embedFn:   charEmbedding,
		available: true,
		generateFn: func(req port.GenerateRequest) (string, error) {
			if strings.Contains(req.Prompt, "strict evaluator") {
				return "0.8", nil
			}
			return "mock answer", nil
		},
	}
}

func (m *mockProvider) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.generateCalls++
	m.mu.Unlock()
	return m.generateFn(req)
}

func (m *mockProvider) Embed(ctx context.Context, text, model string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()
	return m.embedFn(text), nil
}

func (m *mockProvider) EmbedBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	err := m.batchErr
	drop := m.dropOne
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, m.embedFn(text))
	}
	if drop && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

// charEmbedding maps text to a deterministic 8-dimensional vector.
// Identical texts always map to identical vectors.
func charEmbedding(text string) []float32 {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	return v
}

// keywordEmbedding builds an embedding whose axes count keyword hits, so
// related texts land close together. Useful for retrieval assertions.
func keywordEmbedding(groups [][]string) func(text string) []float32 {
	return func(text string) []float32 {
		lower := strings.ToLower(text)
		v := make([]float32, len(groups)+1)
		for i, words := range groups {
			for _, w := range words {
				v[i] += float32(strings.Count(lower, w))
			}
		}
		v[len(groups)] = 0.1 // bias keeps vectors non-zero
		return v
	}
}
