package provider

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_providers.go -package=mocks studysource-ai/internal/provider Embedder,CompletionClient,EntailmentScorer,TokenEstimator

import "context"

// Embedder converts text into fixed-dimension vectors.
// Implementations must return one vector per input text, in order.
type Embedder interface {
	// EmbedTexts generates embeddings for the given texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionClient generates text from a prompt.
// Transient failures (rate limits, upstream timeouts) are returned as
// *TransientError so callers can decide whether to retry.
type CompletionClient interface {
	// Complete sends a prompt to the generation model and returns the response text.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// EntailmentScorer scores how strongly a source passage supports a claim.
type EntailmentScorer interface {
	// Score returns a value in [0, 1] where 1 means the premise fully entails
	// the hypothesis.
	Score(ctx context.Context, hypothesis, premise string) (float64, error)
}

// TokenEstimator approximates the token count of a text for budget accounting.
type TokenEstimator interface {
	// Estimate returns the approximate token count of text.
	Estimate(text string) int
}
