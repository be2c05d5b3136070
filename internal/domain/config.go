package domain

import "fmt"

// RAGConfig is one candidate hyperparameter configuration for the pipeline.
// ChunkSize and ChunkOverlap are measured in characters.
type RAGConfig struct {
	ChunkSize       int    `json:"chunk_size"`
	ChunkOverlap    int    `json:"chunk_overlap"`
	NumChunks       int    `json:"num_chunks"`
	GenerationModel string `json:"generation_model"`
	EmbeddingModel  string `json:"embedding_model"`
}

// Validate checks the configuration against the allowed parameter ranges.
func (c RAGConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size %d: %w", c.ChunkSize, ErrInvalidRange)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap %d for chunk_size %d: %w", c.ChunkOverlap, c.ChunkSize, ErrInvalidRange)
	}
	if c.NumChunks < 1 {
		return fmt.Errorf("num_chunks %d: %w", c.NumChunks, ErrInvalidRange)
	}
	if c.GenerationModel == "" {
		return fmt.Errorf("generation_model is empty: %w", ErrInvalidRange)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is empty: %w", ErrInvalidRange)
	}
	return nil
}

// Label returns a stable human-readable name for the configuration.
func (c RAGConfig) Label() string {
	return fmt.Sprintf("cs%d_ov%d_k%d_%s_%s",
		c.ChunkSize, c.ChunkOverlap, c.NumChunks, c.GenerationModel, c.EmbeddingModel)
}

// IndexSignature identifies the vector index this configuration needs. Two
// configs with equal signatures can share one built index.
func (c RAGConfig) IndexSignature() string {
	return IndexSignature(c.ChunkSize, c.ChunkOverlap, c.EmbeddingModel)
}

// IndexSignature builds the index-equivalence key from raw indexing parameters.
func IndexSignature(chunkSize, chunkOverlap int, embeddingModel string) string {
	return fmt.Sprintf("%d|%d|%s", chunkSize, chunkOverlap, embeddingModel)
}

// IndexingParams returns the indexing parameter mapping recorded on results.
func (c RAGConfig) IndexingParams() map[string]int {
	return map[string]int{
		"chunk_size":    c.ChunkSize,
		"chunk_overlap": c.ChunkOverlap,
	}
}

// InferenceParams returns the inference parameter mapping recorded on results.
func (c RAGConfig) InferenceParams() map[string]any {
	return map[string]any{
		"num_chunks":       c.NumChunks,
		"generation_model": c.GenerationModel,
		"embedding_model":  c.EmbeddingModel,
	}
}
