package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/ragtune/ragtune/internal/adapter/ai"
	"github.com/ragtune/ragtune/internal/handler"
	"github.com/ragtune/ragtune/internal/port"
	"github.com/ragtune/ragtune/internal/service"
	"github.com/ragtune/ragtune/pkg/config"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting RAGTune",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"corpus_dir", cfg.CorpusDir,
		"benchmark", cfg.BenchmarkPath,
	)

	// ── AI Provider ──────────────────────────────────────────────────────
	var provider port.AIProvider
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Error("OPENAI_API_KEY is required for the openai provider")
			os.Exit(1)
		}
		provider = ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "ollama":
		provider = ai.NewOllamaProvider(ai.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Token:   cfg.OllamaToken,
		})
	default:
		slog.Error("unknown AI provider", "provider", cfg.Provider)
		os.Exit(1)
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"app":       cfg.AppName,
			"provider":  cfg.Provider,
			"available": provider.IsAvailable(c.Context()),
		})
	})

	// ── Handlers ─────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	tracker := handler.NewJobTracker()

	sweepHandler := handler.NewSweepHandler(provider, tracker, handler.SweepDefaults{
		CorpusDir:     cfg.CorpusDir,
		BenchmarkPath: cfg.BenchmarkPath,
		Runner: service.RunnerOptions{
			Parallelism:  cfg.Parallelism,
			Temperature:  float32(cfg.Temperature),
			MaxTokens:    cfg.MaxTokens,
			GroupByIndex: true,
		},
	})
	sweepHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(tracker)
	jobsHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
