package service

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ragtune/ragtune/internal/domain"
)

// SweepSpace enumerates the candidate values for each hyperparameter
// dimension. Empty dimensions fall back to a single default value so that a
// partially specified space still produces configurations.
type SweepSpace struct {
	ChunkSizes       []int    `json:"chunk_sizes" yaml:"chunk_sizes"`
	ChunkOverlaps    []int    `json:"chunk_overlaps" yaml:"chunk_overlaps"`
	NumChunks        []int    `json:"num_chunks" yaml:"num_chunks"`
	GenerationModels []string `json:"generation_models" yaml:"generation_models"`
	EmbeddingModels  []string `json:"embedding_models" yaml:"embedding_models"`

	// MaxConfigs caps the number of generated configurations. Zero means
	// no cap.
	MaxConfigs int `json:"max_configs" yaml:"max_configs"`

	// Seed switches the cap selection from evenly spaced sampling to a
	// seeded random sample. Generation stays a pure function of the space
	// and the seed.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Defaults applied to unspecified dimensions.
var (
	defaultChunkSizes       = []int{512}
	defaultChunkOverlaps    = []int{0}
	defaultNumChunks        = []int{3}
	defaultGenerationModels = []string{"llama3.2"}
	defaultEmbeddingModels  = []string{"nomic-embed-text"}
)

// Configs expands the space into an ordered, deduplicated list of candidate
// configurations. Combinations with overlap >= chunk size are rejected; if
// no valid combination remains, the whole expansion fails with InvalidRange.
func (s SweepSpace) Configs() ([]domain.RAGConfig, error) {
	sizes := orDefaultInts(s.ChunkSizes, defaultChunkSizes)
	overlaps := orDefaultInts(s.ChunkOverlaps, defaultChunkOverlaps)
	counts := orDefaultInts(s.NumChunks, defaultNumChunks)
	genModels := orDefaultStrings(s.GenerationModels, defaultGenerationModels)
	embModels := orDefaultStrings(s.EmbeddingModels, defaultEmbeddingModels)

	if s.MaxConfigs < 0 {
		return nil, fmt.Errorf("max_configs %d: %w", s.MaxConfigs, domain.ErrInvalidRange)
	}

	configs := make([]domain.RAGConfig, 0, len(sizes)*len(overlaps)*len(counts)*len(genModels)*len(embModels))
	seen := make(map[domain.RAGConfig]struct{})

	for _, size := range sizes {
		for _, overlap := range overlaps {
			for _, count := range counts {
				for _, gen := range genModels {
					for _, emb := range embModels {
						cfg := domain.RAGConfig{
							ChunkSize:       size,
							ChunkOverlap:    overlap,
							NumChunks:       count,
							GenerationModel: gen,
							EmbeddingModel:  emb,
						}
						if err := cfg.Validate(); err != nil {
							if overlap >= size && overlap >= 0 && size > 0 {
								// Incompatible cross-product pairing, not a
								// malformed value set. Skip it.
								continue
							}
							return nil, err
						}
						if _, dup := seen[cfg]; dup {
							continue
						}
						seen[cfg] = struct{}{}
						configs = append(configs, cfg)
					}
				}
			}
		}
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no valid chunk_size/chunk_overlap combination: %w", domain.ErrInvalidRange)
	}

	if s.MaxConfigs > 0 && len(configs) > s.MaxConfigs {
		configs = s.sample(configs, s.MaxConfigs)
	}

	return configs, nil
}

// sample deterministically selects exactly max configurations. Without a
// seed it picks evenly spaced indices over the cross-product order, which
// spreads the selection across every dimension instead of biasing toward
// the first values of the outermost one. With a seed it draws a seeded
// random sample and restores cross-product order.
func (s SweepSpace) sample(configs []domain.RAGConfig, max int) []domain.RAGConfig {
	n := len(configs)
	if s.Seed == nil {
		out := make([]domain.RAGConfig, 0, max)
		for i := 0; i < max; i++ {
			out = append(out, configs[i*n/max])
		}
		return out
	}

	rng := rand.New(rand.NewSource(*s.Seed))
	picked := rng.Perm(n)[:max]
	sort.Ints(picked)
	out := make([]domain.RAGConfig, 0, max)
	for _, idx := range picked {
		out = append(out, configs[idx])
	}
	return out
}

func orDefaultInts(vals, fallback []int) []int {
	if len(vals) == 0 {
		return fallback
	}
	return vals
}

func orDefaultStrings(vals, fallback []string) []string {
	if len(vals) == 0 {
		return fallback
	}
	return vals
}
