package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragtune/ragtune/internal/adapter/store"
	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/port"
)

// RunnerOptions tunes sweep execution.
type RunnerOptions struct {
	// Parallelism bounds the number of configurations evaluated
	// concurrently. Values below 2 mean sequential evaluation.
	Parallelism int

	// Temperature and MaxTokens are passed to answer generation calls.
	Temperature float32
	MaxTokens   int

	// GroupByIndex reorders configurations so that those sharing an index
	// signature run back to back, maximizing cache reuse. The reorder is
	// stable and deterministic.
	GroupByIndex bool
}

// Runner orchestrates a sweep: per configuration it obtains an index from
// the cache, answers every benchmark question through retrieval +
// generation, and scores the answers.
type Runner struct {
	ai        port.AIProvider
	cache     *IndexCache
	evaluator *Evaluator
	docs      []domain.Document
	benchmark []domain.BenchmarkCase
	opts      RunnerOptions
}

// NewRunner creates a sweep runner over a fixed corpus and benchmark.
func NewRunner(ai port.AIProvider, docs []domain.Document, benchmark []domain.BenchmarkCase, opts RunnerOptions) *Runner {
	return &Runner{
		ai:        ai,
		cache:     NewIndexCache(ai),
		evaluator: NewEvaluator(ai),
		docs:      docs,
		benchmark: benchmark,
		opts:      opts,
	}
}

// Run evaluates every configuration and returns the populated collection.
// A single configuration's failure is recorded, never fatal; only an
// unavailable provider aborts the sweep before it starts. When the context
// expires mid-sweep, configurations not yet started are recorded as failed
// instead of being silently dropped.
func (r *Runner) Run(ctx context.Context, configs []domain.RAGConfig) (*Results, error) {
	if !r.ai.IsAvailable(ctx) {
		return nil, port.ErrProviderUnavailable
	}
	if r.opts.GroupByIndex {
		configs = reorderForCacheLocality(configs)
	}

	slog.Info("starting sweep",
		"configs", len(configs),
		"questions", len(r.benchmark),
		"parallelism", r.opts.Parallelism,
	)

	ordered := make([]domain.EvaluationResult, len(configs))
	if r.opts.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Parallelism)
		for i, cfg := range configs {
			g.Go(func() error {
				ordered[i] = r.Evaluate(gctx, cfg)
				return nil
			})
		}
		_ = g.Wait() // workers record failures on results, never return errors
	} else {
		for i, cfg := range configs {
			ordered[i] = r.Evaluate(ctx, cfg)
		}
	}

	results := NewResults()
	for _, res := range ordered {
		results.Append(res)
	}
	return results, nil
}

// Stream evaluates configurations one at a time, emitting each result as
// it completes so callers can observe progress. Every configuration yields
// exactly one result: after the context expires, remaining configurations
// are emitted as failed entries rather than dropped. The channel closes
// when the sweep finishes; the caller must drain it.
func (r *Runner) Stream(ctx context.Context, configs []domain.RAGConfig) (<-chan domain.EvaluationResult, error) {
	if !r.ai.IsAvailable(ctx) {
		return nil, port.ErrProviderUnavailable
	}
	if r.opts.GroupByIndex {
		configs = reorderForCacheLocality(configs)
	}

	ch := make(chan domain.EvaluationResult)
	go func() {
		defer close(ch)
		for _, cfg := range configs {
			// Evaluate fails fast on an expired context, so cancellation
			// turns the rest of the sweep into failed results.
			ch <- r.Evaluate(ctx, cfg)
		}
	}()
	return ch, nil
}

// Evaluate runs one configuration against the whole benchmark. It never
// returns an error: failures are recorded on the result.
func (r *Runner) Evaluate(ctx context.Context, cfg domain.RAGConfig) domain.EvaluationResult {
	result := domain.EvaluationResult{
		Label:           cfg.Label(),
		Config:          cfg,
		IndexingParams:  cfg.IndexingParams(),
		InferenceParams: cfg.InferenceParams(),
		Stage:           domain.StagePending,
	}
	start := time.Now()

	fail := func(stage string, err error) domain.EvaluationResult {
		slog.Warn("configuration failed", "config", result.Label, "stage", stage, "error", err)
		result.Stage = domain.StageFailed
		result.Error = fmt.Sprintf("%s: %v", stage, err)
		result.ExecutionTime = time.Since(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(domain.StagePending, err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(domain.StagePending, err)
	}

	result.Stage = domain.StageIndexing
	vs, err := r.cache.GetOrBuild(ctx, r.docs, cfg.ChunkSize, cfg.ChunkOverlap, cfg.EmbeddingModel)
	if err != nil {
		return fail(domain.StageIndexing, err)
	}

	scores := make([]QuestionScores, 0, len(r.benchmark))
	for _, bc := range r.benchmark {
		result.Stage = domain.StageRetrieving
		retrieved, err := r.retrieve(ctx, vs, bc.Question, cfg)
		if err != nil {
			return fail(domain.StageRetrieving, err)
		}

		result.Stage = domain.StageGenerating
		answer, err := r.ai.Generate(ctx, port.GenerateRequest{
			Prompt:      buildPrompt(bc.Question, retrieved),
			Model:       cfg.GenerationModel,
			Temperature: r.opts.Temperature,
			MaxTokens:   r.opts.MaxTokens,
		})
		if err != nil {
			return fail(domain.StageGenerating, err)
		}

		result.Stage = domain.StageScoring
		scores = append(scores, r.evaluator.ScoreQuestion(ctx, bc, retrieved, answer, cfg))
	}

	result.Scores, result.FinalScore = Aggregate(scores)
	result.Stage = domain.StageDone
	result.ExecutionTime = time.Since(start)

	slog.Info("configuration evaluated",
		"config", result.Label,
		"final_score", result.FinalScore,
		"elapsed", result.ExecutionTime,
	)
	return result
}

func (r *Runner) retrieve(ctx context.Context, vs *store.VectorStore, question string, cfg domain.RAGConfig) ([]store.SearchResult, error) {
	queryVector, err := r.ai.Embed(ctx, question, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return vs.Search(queryVector, cfg.NumChunks)
}

// buildPrompt assembles the augmented generation prompt from the retrieved
// chunk contents and the question.
func buildPrompt(question string, retrieved []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the provided context. ")
	sb.WriteString("If the context does not contain the answer, say you don't know.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(BuildContext(retrieved))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// reorderForCacheLocality groups configurations by index signature in
// first-appearance order, keeping the relative order within each group.
func reorderForCacheLocality(configs []domain.RAGConfig) []domain.RAGConfig {
	groups := make(map[string][]domain.RAGConfig)
	var order []string
	for _, cfg := range configs {
		sig := cfg.IndexSignature()
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], cfg)
	}

	out := make([]domain.RAGConfig, 0, len(configs))
	for _, sig := range order {
		out = append(out, groups[sig]...)
	}
	return out
}
