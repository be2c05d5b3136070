package domain

import "time"

// Evaluation stage names, recorded on results as they progress.
const (
	StagePending    = "pending"
	StageIndexing   = "indexing"
	StageRetrieving = "retrieving"
	StageGenerating = "generating"
	StageScoring    = "scoring"
	StageDone       = "done"
	StageFailed     = "failed"
)

// MetricScore aggregates one metric across the benchmark.
type MetricScore struct {
	Mean   float64   `json:"mean"`
	Values []float64 `json:"values,omitempty"`
}

// EvaluationResult is the outcome of evaluating one configuration against
// the full benchmark. Immutable once assembled by the runner.
type EvaluationResult struct {
	Label           string                 `json:"label"`
	Config          RAGConfig              `json:"config"`
	IndexingParams  map[string]int         `json:"indexing_params"`
	InferenceParams map[string]any         `json:"inference_params"`
	Scores          map[string]MetricScore `json:"scores,omitempty"`
	FinalScore      float64                `json:"final_score"`
	ExecutionTime   time.Duration          `json:"execution_time"`
	Stage           string                 `json:"stage"`
	Error           string                 `json:"error,omitempty"`
}

// Failed reports whether the configuration failed instead of producing scores.
func (r EvaluationResult) Failed() bool {
	return r.Stage == StageFailed
}

// BenchmarkCase is one question with its expected answer.
type BenchmarkCase struct {
	Question    string `json:"question" yaml:"question"`
	GroundTruth string `json:"ground_truth" yaml:"ground_truth"`
}
