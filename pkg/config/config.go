package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string

	// Provider selection: "ollama" or "openai"
	Provider string

	// Ollama
	OllamaBaseURL string
	OllamaToken   string // Bearer token for Ollama Cloud (empty = local)

	// OpenAI (or any compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Sweep inputs
	CorpusDir     string
	BenchmarkPath string

	// Sweep execution
	Parallelism int
	Temperature float64
	MaxTokens   int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "3001"),
		AppName: envOrDefault("APP_NAME", "RAGTune"),

		Provider: envOrDefault("AI_PROVIDER", "ollama"),

		OllamaBaseURL: envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaToken:   os.Getenv("OLLAMA_TOKEN"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		CorpusDir:     envOrDefault("CORPUS_DIR", "./corpus"),
		BenchmarkPath: envOrDefault("BENCHMARK_PATH", "./benchmark.yaml"),

		Parallelism: envOrDefaultInt("SWEEP_PARALLELISM", 1),
		Temperature: envOrDefaultFloat("GENERATION_TEMPERATURE", 0),
		MaxTokens:   envOrDefaultInt("GENERATION_MAX_TOKENS", 512),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
