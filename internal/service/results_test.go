package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragtune/ragtune/internal/domain"
)

func resultFixture(label string, score float64) domain.EvaluationResult {
	cfg := domain.RAGConfig{
		ChunkSize:       len(label) + 10, // distinct per label
		ChunkOverlap:    1,
		NumChunks:       2,
		GenerationModel: "gen",
		EmbeddingModel:  "emb",
	}
	return domain.EvaluationResult{
		Label:           label,
		Config:          cfg,
		IndexingParams:  cfg.IndexingParams(),
		InferenceParams: cfg.InferenceParams(),
		Scores: map[string]domain.MetricScore{
			MetricAnswerCorrectness: {Mean: score},
			MetricContextRelevance:  {Mean: score},
			MetricFaithfulness:      {Mean: score},
		},
		FinalScore:    score,
		ExecutionTime: 1500 * time.Millisecond,
		Stage:         domain.StageDone,
	}
}

func TestResultsSortedDoesNotMutateInsertionOrder(t *testing.T) {
	r := NewResults()
	r.Append(resultFixture("low", 0.2))
	r.Append(resultFixture("high", 0.9))
	r.Append(resultFixture("mid", 0.5))

	sorted := r.Sorted(false)
	require.Len(t, sorted, 3)
	assert.Equal(t, "high", sorted[0].Label)
	assert.Equal(t, "mid", sorted[1].Label)
	assert.Equal(t, "low", sorted[2].Label)

	reversed := r.Sorted(true)
	assert.Equal(t, "low", reversed[0].Label)

	all := r.All()
	assert.Equal(t, "low", all[0].Label)
	assert.Equal(t, "high", all[1].Label)
	assert.Equal(t, "mid", all[2].Label)
}

func TestResultsSortFailedLast(t *testing.T) {
	failed := resultFixture("broken", 0)
	failed.Stage = domain.StageFailed
	failed.Error = "indexing: boom"
	failed.Scores = nil

	r := NewResults()
	r.Append(failed)
	r.Append(resultFixture("ok", 0.1))

	sorted := r.Sorted(false)
	assert.Equal(t, "ok", sorted[0].Label)
	assert.Equal(t, "broken", sorted[1].Label)
}

func TestResultsBest(t *testing.T) {
	r := NewResults()
	r.Append(resultFixture("a", 0.3))
	r.Append(resultFixture("b", 0.8))
	failed := resultFixture("f", 0)
	failed.Stage = domain.StageFailed
	r.Append(failed)

	best := r.Best(2)
	require.Len(t, best, 2)
	assert.Equal(t, "b", best[0].Label)
	assert.Equal(t, "a", best[1].Label)

	assert.Len(t, r.Best(10), 2, "failed results never rank")
	assert.Empty(t, r.Best(0))
	assert.Empty(t, r.Best(-3))
}

func TestResultsTiesKeepEvaluationOrder(t *testing.T) {
	r := NewResults()
	r.Append(resultFixture("first", 0.5))
	r.Append(resultFixture("second", 0.5))

	sorted := r.Sorted(false)
	assert.Equal(t, "first", sorted[0].Label)
	assert.Equal(t, "second", sorted[1].Label)
}

func TestResultsIsCached(t *testing.T) {
	res := resultFixture("a", 0.4)
	r := NewResults()
	r.Append(res)

	assert.True(t, r.IsCached(res.IndexingParams, res.InferenceParams))

	other := map[string]int{"chunk_size": 999, "chunk_overlap": 1}
	assert.False(t, r.IsCached(other, res.InferenceParams))
}

func TestResultsExport(t *testing.T) {
	res := resultFixture("a", 0.4)
	r := NewResults()
	r.Append(res)

	failed := resultFixture("broken", 0)
	failed.Stage = domain.StageFailed
	failed.Error = "generating: boom"
	failed.Scores = nil
	r.Append(failed)

	records := r.Export()
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "a", rec.Label)
	assert.Equal(t, res.Config.ChunkSize, rec.IndexingParams["chunk_size"])
	assert.Equal(t, res.Config.ChunkOverlap, rec.IndexingParams["chunk_overlap"])
	assert.Equal(t, 2, rec.InferenceParams["num_chunks"])
	assert.Equal(t, "gen", rec.InferenceParams["generation_model"])
	assert.Equal(t, "emb", rec.InferenceParams["embedding_model"])
	require.NotNil(t, rec.FinalScore)
	assert.InDelta(t, 0.4, *rec.FinalScore, 1e-9)
	assert.InDelta(t, 1.5, rec.ExecutionTime, 1e-9)
	assert.Equal(t, map[string]float64{"mean": 0.4}, rec.Scores[MetricFaithfulness])

	assert.Nil(t, records[1].FinalScore, "failed results export a null score")
	assert.NotEmpty(t, records[1].Error)
}

func TestResultsWriteJSONDeterministic(t *testing.T) {
	r := NewResults()
	r.Append(resultFixture("a", 0.4))
	r.Append(resultFixture("b", 0.7))

	var first, second bytes.Buffer
	require.NoError(t, r.WriteJSON(&first))
	require.NoError(t, r.WriteJSON(&second))
	assert.Equal(t, first.Bytes(), second.Bytes())

	assert.Contains(t, first.String(), `"final_score"`)
	assert.Contains(t, first.String(), `"indexing_params"`)
	assert.Contains(t, first.String(), `"execution_time"`)
}
