package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ragtune/ragtune/internal/adapter/store"
	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/port"
)

// Metric names, normative for result export.
const (
	MetricAnswerCorrectness = "answer_correctness"
	MetricContextRelevance  = "context_relevance"
	MetricFaithfulness      = "faithfulness"
)

const judgeMaxTokens = 64

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// QuestionScores holds the three per-question metric values, each in [0,1].
type QuestionScores struct {
	Correctness  float64
	Relevance    float64
	Faithfulness float64
}

// Evaluator scores (question, retrieved context, generated answer, ground
// truth) tuples. Answer correctness is embedding cosine similarity against
// the ground truth; context relevance and faithfulness are scored by the
// generation model acting as a judge.
type Evaluator struct {
	ai port.AIProvider
}

// NewEvaluator creates an evaluator backed by the given provider.
func NewEvaluator(ai port.AIProvider) *Evaluator {
	return &Evaluator{ai: ai}
}

// ScoreQuestion scores one benchmark question. Malformed or empty provider
// output never fails the run: the affected metrics score 0 instead.
func (e *Evaluator) ScoreQuestion(ctx context.Context, bc domain.BenchmarkCase, retrieved []store.SearchResult, answer string, cfg domain.RAGConfig) QuestionScores {
	if strings.TrimSpace(answer) == "" {
		return QuestionScores{}
	}

	contextBlock := BuildContext(retrieved)
	return QuestionScores{
		Correctness:  e.scoreCorrectness(ctx, answer, bc.GroundTruth, cfg.EmbeddingModel),
		Relevance:    e.judgeContextRelevance(ctx, bc.Question, contextBlock, cfg.GenerationModel),
		Faithfulness: e.judgeFaithfulness(ctx, answer, contextBlock, cfg.GenerationModel),
	}
}

// Aggregate folds per-question scores into per-metric means and the final
// combined score (the unweighted mean of the three metric means).
func Aggregate(scores []QuestionScores) (map[string]domain.MetricScore, float64) {
	correctness := make([]float64, len(scores))
	relevance := make([]float64, len(scores))
	faithfulness := make([]float64, len(scores))
	for i, s := range scores {
		correctness[i] = s.Correctness
		relevance[i] = s.Relevance
		faithfulness[i] = s.Faithfulness
	}

	metrics := map[string]domain.MetricScore{
		MetricAnswerCorrectness: {Mean: mean(correctness), Values: correctness},
		MetricContextRelevance:  {Mean: mean(relevance), Values: relevance},
		MetricFaithfulness:      {Mean: mean(faithfulness), Values: faithfulness},
	}
	final := (metrics[MetricAnswerCorrectness].Mean +
		metrics[MetricContextRelevance].Mean +
		metrics[MetricFaithfulness].Mean) / 3
	return metrics, final
}

// scoreCorrectness measures semantic similarity between the generated
// answer and the ground truth via embedding cosine, clamped to [0,1].
func (e *Evaluator) scoreCorrectness(ctx context.Context, answer, groundTruth, embeddingModel string) float64 {
	vectors, err := e.ai.EmbedBatch(ctx, []string{answer, groundTruth}, embeddingModel)
	if err != nil || len(vectors) != 2 {
		slog.Warn("correctness embedding failed", "error", err)
		return 0
	}
	return clamp01(cosine(vectors[0], vectors[1]))
}

func (e *Evaluator) judgeContextRelevance(ctx context.Context, question, contextBlock, model string) float64 {
	prompt := fmt.Sprintf(`You are a strict evaluator. Return only a single number between 0 and 1.
0 means the context contains nothing useful for the question. 1 means it contains everything needed to answer it.

Question:
%s

Context:
%s

Score (0-1):`, question, contextBlock)
	return e.judge(ctx, prompt, model)
}

func (e *Evaluator) judgeFaithfulness(ctx context.Context, answer, contextBlock, model string) float64 {
	prompt := fmt.Sprintf(`You are a strict evaluator. Return only a single number between 0 and 1.
0 means the answer is not supported by the context. 1 means all of its claims are fully supported.

Context:
%s

Answer:
%s

Score (0-1):`, contextBlock, answer)
	return e.judge(ctx, prompt, model)
}

// judge runs one scoring prompt. Any provider failure or unparseable reply
// scores 0 rather than surfacing an error.
func (e *Evaluator) judge(ctx context.Context, prompt, model string) float64 {
	reply, err := e.ai.Generate(ctx, port.GenerateRequest{
		Prompt:    prompt,
		Model:     model,
		MaxTokens: judgeMaxTokens,
	})
	if err != nil {
		slog.Warn("judge call failed", "model", model, "error", err)
		return 0
	}
	score, err := parseScore(reply)
	if err != nil {
		slog.Warn("judge reply unparseable", "model", model, "reply", reply, "error", err)
		return 0
	}
	return score
}

// BuildContext formats retrieved chunks into a numbered plain-text block
// used for both prompt augmentation and judging.
func BuildContext(results []store.SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Context chunk %d (%s) ---\n", i+1, r.Chunk.DocumentID))
		sb.WriteString(r.Chunk.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// parseScore extracts a 0-1 score from a judge reply, tolerating percent
// forms like "85%".
func parseScore(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty judge response")
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response %q", trimmed)
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", match, err)
	}
	if val > 1 && val <= 100 && strings.Contains(trimmed, "%") {
		val /= 100
	}
	if val < 0 || val > 1 {
		return 0, fmt.Errorf("score out of range: %v", val)
	}
	return val, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dp, na, nb float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dp / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
