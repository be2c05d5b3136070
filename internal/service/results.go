package service

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/ragtune/ragtune/internal/domain"
)

// Results is an append-only, queryable collection of evaluation results.
// Insertion order is evaluation order and is never mutated; sorting returns
// a separate view. Append is synchronized for the parallel runner; reads
// after the run completes need no coordination.
type Results struct {
	mu    sync.RWMutex
	items []domain.EvaluationResult
	seen  map[string]struct{}
}

// ExportRecord is the flat serialized form of one result. Field names are
// normative for downstream analysis tooling.
type ExportRecord struct {
	Label           string                        `json:"label"`
	IndexingParams  map[string]int                `json:"indexing_params"`
	InferenceParams map[string]any                `json:"inference_params"`
	Scores          map[string]map[string]float64 `json:"scores"`
	FinalScore      *float64                      `json:"final_score"`
	ExecutionTime   float64                       `json:"execution_time"`
	Error           string                        `json:"error,omitempty"`
}

// NewResults creates an empty collection.
func NewResults() *Results {
	return &Results{seen: make(map[string]struct{})}
}

// Append records one result.
func (r *Results) Append(res domain.EvaluationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, res)
	r.seen[configKey(res.Config)] = struct{}{}
}

// Len returns the number of recorded results.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// All returns the results in insertion (evaluation) order.
func (r *Results) All() []domain.EvaluationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EvaluationResult, len(r.items))
	copy(out, r.items)
	return out
}

// Sorted returns a view sorted by final score, best first by default,
// worst first when reverse is set. Failed results always sort last. Ties
// keep evaluation order. The underlying storage is never reordered.
func (r *Results) Sorted(reverse bool) []domain.EvaluationResult {
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Failed() != b.Failed() {
			return b.Failed()
		}
		if reverse {
			return a.FinalScore < b.FinalScore
		}
		return a.FinalScore > b.FinalScore
	})
	return out
}

// Best returns the top k successful results by final score. Non-positive k
// yields an empty slice.
func (r *Results) Best(k int) []domain.EvaluationResult {
	if k < 0 {
		k = 0
	}
	sorted := r.Sorted(false)
	out := make([]domain.EvaluationResult, 0, k)
	for _, res := range sorted {
		if res.Failed() || len(out) == k {
			break
		}
		out = append(out, res)
	}
	return out
}

// IsCached reports whether a configuration with the given indexing and
// inference parameters has already been evaluated, supporting resumable
// sweeps.
func (r *Results) IsCached(indexing map[string]int, inference map[string]any) bool {
	cfg := domain.RAGConfig{
		ChunkSize:    indexing["chunk_size"],
		ChunkOverlap: indexing["chunk_overlap"],
	}
	if v, ok := inference["num_chunks"].(int); ok {
		cfg.NumChunks = v
	}
	if v, ok := inference["generation_model"].(string); ok {
		cfg.GenerationModel = v
	}
	if v, ok := inference["embedding_model"].(string); ok {
		cfg.EmbeddingModel = v
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seen[configKey(cfg)]
	return ok
}

// Export converts the collection (in insertion order) into flat records.
func (r *Results) Export() []ExportRecord {
	items := r.All()
	records := make([]ExportRecord, len(items))
	for i, res := range items {
		rec := ExportRecord{
			Label:           res.Label,
			IndexingParams:  res.IndexingParams,
			InferenceParams: res.InferenceParams,
			Scores:          make(map[string]map[string]float64, len(res.Scores)),
			ExecutionTime:   res.ExecutionTime.Seconds(),
			Error:           res.Error,
		}
		for name, score := range res.Scores {
			rec.Scores[name] = map[string]float64{"mean": score.Mean}
		}
		if !res.Failed() {
			final := res.FinalScore
			rec.FinalScore = &final
		}
		records[i] = rec
	}
	return records
}

// WriteJSON serializes the export records as an indented top-level array.
func (r *Results) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Export()); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

func configKey(cfg domain.RAGConfig) string {
	return fmt.Sprintf("%s|%d|%s", cfg.IndexSignature(), cfg.NumChunks, cfg.GenerationModel)
}
