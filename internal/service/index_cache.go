package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ragtune/ragtune/internal/adapter/store"
	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/port"
)

// IndexCache memoizes built vector indexes per index-equivalence signature
// (chunk size, chunk overlap, embedding model), so configurations sharing
// indexing parameters never re-chunk or re-embed the corpus.
//
// The cache is scoped to one optimization run. Successful builds are
// published read-only; failed builds are not cached, so a retry can
// attempt the build again.
type IndexCache struct {
	ai port.AIProvider

	mu     sync.RWMutex
	stores map[string]*store.VectorStore
	group  singleflight.Group
}

// NewIndexCache creates an empty cache backed by the given provider.
func NewIndexCache(ai port.AIProvider) *IndexCache {
	return &IndexCache{
		ai:     ai,
		stores: make(map[string]*store.VectorStore),
	}
}

// GetOrBuild returns the index for the given signature, building it on
// first use. Concurrent callers with the same signature coalesce onto a
// single build: at most one embedding batch runs per signature.
func (c *IndexCache) GetOrBuild(ctx context.Context, docs []domain.Document, chunkSize, chunkOverlap int, embeddingModel string) (*store.VectorStore, error) {
	sig := domain.IndexSignature(chunkSize, chunkOverlap, embeddingModel)

	c.mu.RLock()
	vs, ok := c.stores[sig]
	c.mu.RUnlock()
	if ok {
		return vs, nil
	}

	val, err, _ := c.group.Do(sig, func() (any, error) {
		// Re-check: a previous flight may have published while we queued.
		c.mu.RLock()
		vs, ok := c.stores[sig]
		c.mu.RUnlock()
		if ok {
			return vs, nil
		}

		vs, err := c.build(ctx, docs, chunkSize, chunkOverlap, embeddingModel)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.stores[sig] = vs
		c.mu.Unlock()
		return vs, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*store.VectorStore), nil
}

// Len returns the number of cached indexes.
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stores)
}

// build chunks every document, embeds all chunk texts in one batch, and
// assembles a fresh store.
func (c *IndexCache) build(ctx context.Context, docs []domain.Document, chunkSize, chunkOverlap int, embeddingModel string) (*store.VectorStore, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		docChunks, err := SplitDocument(doc, chunkSize, chunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}
		chunks = append(chunks, docChunks...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%d documents: %w", len(docs), domain.ErrEmptyCorpus)
	}

	slog.Info("building vector index",
		"chunk_size", chunkSize,
		"chunk_overlap", chunkOverlap,
		"embedding_model", embeddingModel,
		"chunks", len(chunks),
	)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := c.ai.EmbedBatch(ctx, texts, embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embed batch returned %d vectors for %d chunks", port.ErrProvider, len(vectors), len(chunks))
	}

	vs := store.NewVectorStore()
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		if err := vs.Add(chunks[i]); err != nil {
			return nil, fmt.Errorf("index chunk: %w", err)
		}
	}
	return vs, nil
}
