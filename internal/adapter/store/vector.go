package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/ragtune/ragtune/internal/domain"
)

// VectorStore is an in-memory nearest-neighbor index over normalized chunk
// embeddings. Vectors are L2-normalized once on insert so that a query costs
// a single dot product per stored chunk.
//
// The store has no internal synchronization: it is built by one goroutine
// and published read-only. Never mutate a store after handing it to
// concurrent readers.
type VectorStore struct {
	chunks    []domain.Chunk
	dimension int
}

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk domain.Chunk
	Score float64
}

// NewVectorStore creates an empty store. The dimension is fixed by the
// first chunk added.
func NewVectorStore() *VectorStore {
	return &VectorStore{}
}

// Add appends a chunk, normalizing its embedding. All chunks in one store
// must share the same dimensionality.
func (v *VectorStore) Add(chunk domain.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk %s[%d] has no embedding: %w", chunk.DocumentID, chunk.Index, domain.ErrDimensionMismatch)
	}
	if v.dimension == 0 {
		v.dimension = len(chunk.Embedding)
	} else if len(chunk.Embedding) != v.dimension {
		return fmt.Errorf("chunk %s[%d] has dimension %d, store has %d: %w",
			chunk.DocumentID, chunk.Index, len(chunk.Embedding), v.dimension, domain.ErrDimensionMismatch)
	}

	chunk.Embedding = normalized(chunk.Embedding)
	v.chunks = append(v.chunks, chunk)
	return nil
}

// Search returns the topK most similar chunks in strictly descending score
// order, ties broken by ascending insertion order. If topK exceeds the
// number of stored chunks, all of them are returned.
func (v *VectorStore) Search(query []float32, topK int) ([]SearchResult, error) {
	if len(query) != v.dimension {
		return nil, fmt.Errorf("query has dimension %d, store has %d: %w",
			len(query), v.dimension, domain.ErrDimensionMismatch)
	}
	if topK < 1 {
		return nil, fmt.Errorf("top_k %d: %w", topK, domain.ErrInvalidRange)
	}

	q := normalized(query)

	results := make([]SearchResult, len(v.chunks))
	for i, chunk := range v.chunks {
		results[i] = SearchResult{Chunk: chunk, Score: dot(q, chunk.Embedding)}
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of stored chunks.
func (v *VectorStore) Len() int {
	return len(v.chunks)
}

// Dimension returns the embedding dimensionality, 0 if the store is empty.
func (v *VectorStore) Dimension() int {
	return v.dimension
}

// Clear discards all chunks. The dimension resets with the contents.
func (v *VectorStore) Clear() {
	v.chunks = nil
	v.dimension = 0
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalized returns a unit-L2 copy of the vector. Zero vectors are
// returned as copies unchanged.
func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
