package port

import "context"

// GenerateRequest carries one generation call to the provider.
type GenerateRequest struct {
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// AIProvider abstracts the LLM/embedding backend consumed by the sweep engine.
// Implementations can target Ollama, OpenAI, or any compatible API.
type AIProvider interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text, model string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call,
	// returning one vector per input in the same order.
	EmbedBatch(ctx context.Context, texts []string, model string) ([][]float32, error)

	// IsAvailable reports whether the backend is reachable. Consulted once
	// before a sweep starts.
	IsAvailable(ctx context.Context) bool
}
