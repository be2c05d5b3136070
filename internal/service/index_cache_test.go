package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/port"
)

var cacheDocs = []domain.Document{
	{ID: "a", Content: "The sky is blue. Water boils at 100 degrees."},
	{ID: "b", Content: "Honey never spoils. Bees make honey from nectar."},
}

func TestIndexCacheReusesBuiltIndex(t *testing.T) {
	mock := newMockProvider()
	cache := NewIndexCache(mock)
	ctx := context.Background()

	first, err := cache.GetOrBuild(ctx, cacheDocs, 20, 5, "emb")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.batchCalls)
	assert.Greater(t, first.Len(), 0)

	second, err := cache.GetOrBuild(ctx, cacheDocs, 20, 5, "emb")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, mock.batchCalls, "repeated signature must not re-embed")

	third, err := cache.GetOrBuild(ctx, cacheDocs, 30, 5, "emb")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, mock.batchCalls, "new chunk_size triggers a new build")

	_, err = cache.GetOrBuild(ctx, cacheDocs, 20, 5, "other-emb")
	require.NoError(t, err)
	assert.Equal(t, 3, mock.batchCalls, "new embedding model triggers a new build")
	assert.Equal(t, 3, cache.Len())
}

func TestIndexCacheConcurrentSingleBuild(t *testing.T) {
	mock := newMockProvider()
	cache := NewIndexCache(mock)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrBuild(context.Background(), cacheDocs, 20, 5, "emb")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mock.batchCalls, "concurrent requesters must coalesce onto one build")
}

func TestIndexCacheFailureNotCached(t *testing.T) {
	mock := newMockProvider()
	mock.batchErr = errors.New("connection refused")
	cache := NewIndexCache(mock)
	ctx := context.Background()

	_, err := cache.GetOrBuild(ctx, cacheDocs, 20, 5, "emb")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	// A retry after the provider recovers builds successfully.
	mock.mu.Lock()
	mock.batchErr = nil
	mock.mu.Unlock()

	vs, err := cache.GetOrBuild(ctx, cacheDocs, 20, 5, "emb")
	require.NoError(t, err)
	assert.Greater(t, vs.Len(), 0)
	assert.Equal(t, 2, mock.batchCalls)
}

func TestIndexCacheVectorCountMismatch(t *testing.T) {
	mock := newMockProvider()
	mock.dropOne = true
	cache := NewIndexCache(mock)

	_, err := cache.GetOrBuild(context.Background(), cacheDocs, 20, 5, "emb")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrProvider)
	assert.Equal(t, 0, cache.Len())
}

func TestIndexCacheEmptyCorpus(t *testing.T) {
	mock := newMockProvider()
	cache := NewIndexCache(mock)

	_, err := cache.GetOrBuild(context.Background(), nil, 20, 5, "emb")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Equal(t, 0, mock.batchCalls)

	_, err = cache.GetOrBuild(context.Background(), []domain.Document{{ID: "x", Content: ""}}, 20, 5, "emb")
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}
