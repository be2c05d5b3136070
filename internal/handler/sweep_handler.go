package handler

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/loader"
	"github.com/ragtune/ragtune/internal/port"
	"github.com/ragtune/ragtune/internal/service"
)

// SweepDefaults holds server-side fallbacks for sweep requests.
type SweepDefaults struct {
	CorpusDir     string
	BenchmarkPath string
	Runner        service.RunnerOptions
}

// SweepHandler launches and reports hyperparameter sweeps.
type SweepHandler struct {
	ai       port.AIProvider
	tracker  *JobTracker
	defaults SweepDefaults
}

// NewSweepHandler creates a new sweep handler.
func NewSweepHandler(ai port.AIProvider, tracker *JobTracker, defaults SweepDefaults) *SweepHandler {
	return &SweepHandler{ai: ai, tracker: tracker, defaults: defaults}
}

// Register sets up sweep routes.
func (h *SweepHandler) Register(router fiber.Router) {
	sweeps := router.Group("/sweeps")
	sweeps.Post("/", h.Start)
	sweeps.Get("/:id/results", h.Results)
}

type sweepRequest struct {
	Space         service.SweepSpace     `json:"space"`
	SpacePath     string                 `json:"space_path,omitempty"`
	Documents     []domain.Document      `json:"documents,omitempty"`
	CorpusDir     string                 `json:"corpus_dir,omitempty"`
	Benchmark     []domain.BenchmarkCase `json:"benchmark,omitempty"`
	BenchmarkPath string                 `json:"benchmark_path,omitempty"`
	Parallelism   int                    `json:"parallelism,omitempty"`
}

// Start launches an asynchronous sweep and returns its job ID.
func (h *SweepHandler) Start(c fiber.Ctx) error {
	var body sweepRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	docs, benchmark, err := h.resolveInputs(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	space := body.Space
	if body.SpacePath != "" {
		space, err = loader.LoadSweepSpace(body.SpacePath)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	configs, err := space.Configs()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	opts := h.defaults.Runner
	if body.Parallelism > 0 {
		opts.Parallelism = body.Parallelism
	}
	runner := service.NewRunner(h.ai, docs, benchmark, opts)

	jobID := uuid.NewString()
	h.tracker.CreateJob(jobID, len(configs))
	go h.execute(jobID, runner, configs, opts.Parallelism)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"sweep_id": jobID,
		"configs":  len(configs),
	})
}

// Results returns the finished collection, exported flat. Query parameters:
// sorted=true for best-first order, best=k for the top k results.
func (h *SweepHandler) Results(c fiber.Ctx) error {
	id := c.Params("id")
	results, ok := h.tracker.GetResults(id)
	if !ok {
		job, exists := h.tracker.GetJob(id)
		switch {
		case exists && job.Status == JobRunning:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "sweep still running"})
		case exists && job.Status == JobError:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": job.Error})
		default:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sweep not found"})
		}
	}

	if best := c.Query("best"); best != "" {
		k, err := strconv.Atoi(best)
		if err != nil || k < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid best parameter"})
		}
		return c.JSON(results.Best(k))
	}
	if c.Query("sorted") == "true" {
		return c.JSON(results.Sorted(false))
	}
	return c.JSON(results.Export())
}

// resolveInputs picks the corpus and benchmark from the request body,
// falling back to the configured paths.
func (h *SweepHandler) resolveInputs(body sweepRequest) ([]domain.Document, []domain.BenchmarkCase, error) {
	docs := body.Documents
	if len(docs) == 0 {
		dir := body.CorpusDir
		if dir == "" {
			dir = h.defaults.CorpusDir
		}
		loaded, err := loader.LoadDocuments(dir)
		if err != nil {
			return nil, nil, err
		}
		docs = loaded
	}

	benchmark := body.Benchmark
	if len(benchmark) == 0 {
		path := body.BenchmarkPath
		if path == "" {
			path = h.defaults.BenchmarkPath
		}
		loaded, err := loader.LoadBenchmark(path)
		if err != nil {
			return nil, nil, err
		}
		benchmark = loaded
	}

	return docs, benchmark, nil
}

// execute drives the sweep to completion, feeding progress to the tracker.
func (h *SweepHandler) execute(jobID string, runner *service.Runner, configs []domain.RAGConfig, parallelism int) {
	ctx := context.Background()

	if parallelism > 1 {
		results, err := runner.Run(ctx, configs)
		if err != nil {
			h.tracker.FailJob(jobID, err.Error())
			return
		}
		h.tracker.SetResults(jobID, results)
		h.tracker.UpdateJob(jobID, "", len(configs), JobComplete)
		return
	}

	ch, err := runner.Stream(ctx, configs)
	if err != nil {
		h.tracker.FailJob(jobID, err.Error())
		return
	}

	results := service.NewResults()
	done := 0
	for res := range ch {
		results.Append(res)
		done++
		h.tracker.UpdateJob(jobID, res.Label, done, JobRunning)
	}
	h.tracker.SetResults(jobID, results)
	h.tracker.UpdateJob(jobID, "", done, JobComplete)

	slog.Info("sweep finished", "sweep_id", jobID, "configs", done)
}
