package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragtune/ragtune/internal/domain"
)

func chunk(id string, idx int, embedding []float32) domain.Chunk {
	return domain.Chunk{DocumentID: id, Index: idx, Content: id, Embedding: embedding}
}

func TestSearchOrdersByScore(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("far", 0, []float32{0, 1, 0})))
	require.NoError(t, vs.Add(chunk("close", 0, []float32{1, 0.1, 0})))
	require.NoError(t, vs.Add(chunk("exact", 0, []float32{1, 0, 0})))

	results, err := vs.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].Chunk.DocumentID)
	assert.Equal(t, "close", results[1].Chunk.DocumentID)
	assert.Equal(t, "far", results[2].Chunk.DocumentID)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	vs := NewVectorStore()
	// Same direction, different magnitude: identical after normalization.
	require.NoError(t, vs.Add(chunk("first", 0, []float32{2, 0})))
	require.NoError(t, vs.Add(chunk("second", 0, []float32{4, 0})))
	require.NoError(t, vs.Add(chunk("third", 0, []float32{1, 0})))

	results, err := vs.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.DocumentID)
	assert.Equal(t, "second", results[1].Chunk.DocumentID)
	assert.Equal(t, "third", results[2].Chunk.DocumentID)
}

func TestSearchIsIdempotent(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("a", 0, []float32{0.3, 0.7, 0.1})))
	require.NoError(t, vs.Add(chunk("b", 0, []float32{0.9, 0.2, 0.4})))
	require.NoError(t, vs.Add(chunk("c", 0, []float32{0.1, 0.1, 0.8})))

	query := []float32{0.5, 0.5, 0.5}
	first, err := vs.Search(query, 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := vs.Search(query, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchTopKExceedsSize(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("a", 0, []float32{1, 0})))
	require.NoError(t, vs.Add(chunk("b", 0, []float32{0, 1})))

	results, err := vs.Search([]float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("a", 0, []float32{1, 0, 0})))

	err := vs.Add(chunk("b", 0, []float32{1, 0}))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = vs.Add(chunk("c", 0, nil))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = vs.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearchInvalidTopK(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("a", 0, []float32{1, 0})))

	_, err := vs.Search([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestClear(t *testing.T) {
	vs := NewVectorStore()
	require.NoError(t, vs.Add(chunk("a", 0, []float32{1, 0})))
	require.Equal(t, 1, vs.Len())
	require.Equal(t, 2, vs.Dimension())

	vs.Clear()
	assert.Equal(t, 0, vs.Len())
	assert.Equal(t, 0, vs.Dimension())

	// Dimension is free to change after a clear.
	assert.NoError(t, vs.Add(chunk("b", 0, []float32{1, 0, 0})))
}

func TestAddNormalizesCopy(t *testing.T) {
	vs := NewVectorStore()
	original := []float32{3, 4}
	require.NoError(t, vs.Add(chunk("a", 0, original)))

	// The caller's slice is untouched.
	assert.Equal(t, []float32{3, 4}, original)

	results, err := vs.Search([]float32{3, 4}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}
