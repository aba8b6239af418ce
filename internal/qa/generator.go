package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studysource-ai/internal/config"
	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/provider"
)

// RefusalMarker is the token the model is instructed to emit when the
// provided passages do not contain the answer. Its presence in a generated
// answer maps to an INSUFFICIENT_SOURCE outcome.
const RefusalMarker = "NOT_IN_MATERIALS"

const generationBackoffBase = 500 * time.Millisecond

// levelDirectives adjusts the requested answer style per cognitive level.
// The citation mandate is identical at every level.
var levelDirectives = map[CognitiveLevel]string{
	LevelRemember:   "Answer with a short, direct factual recall of what the passages state.",
	LevelUnderstand: "Explain the relevant material in your own words so a learner can follow it.",
	LevelApply:      "Show how the material from the passages applies to the situation in the question, step by step.",
	LevelAnalyze:    "Break the material down into its parts and explain how they relate to each other.",
	LevelEvaluate:   "Weigh the positions or approaches described in the passages and judge them on the criteria they give.",
	LevelCreate:     "Synthesize across the passages to construct the requested result, grounding every part in them.",
}

// Generator produces a cited draft answer from an assembled context.
type Generator struct {
	client provider.CompletionClient
	cfg    config.GenerationConfig
}

// NewGenerator creates an answer generator.
func NewGenerator(client provider.CompletionClient, cfg config.GenerationConfig) *Generator {
	return &Generator{
		client: client,
		cfg:    cfg,
	}
}

// Generate invokes the completion model with the citation-mandating prompt.
// Transient failures are retried with exponential backoff up to the attempt
// limit; exhausting the limit returns ErrGenerationUnavailable. The returned
// text is the raw model output, citation tags included.
func (g *Generator) Generate(ctx context.Context, question string, level CognitiveLevel, assembled AssembledContext) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)
	prompt := g.buildPrompt(question, level, assembled)

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		answer, err := g.client.Complete(ctx, prompt, g.cfg.MaxTokens, g.cfg.Temperature)
		if err == nil {
			return answer, nil
		}
		if !provider.IsTransient(err) {
			return "", fmt.Errorf("failed to generate answer: %w", err)
		}

		lastErr = err
		if attempt == g.cfg.MaxAttempts {
			break
		}

		backoff := generationBackoffBase << (attempt - 1)
		logger.WarnContext(ctx, "transient generation failure, retrying",
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("generation aborted: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrGenerationUnavailable, g.cfg.MaxAttempts, lastErr)
}

// IsRefusal reports whether the model declined to answer from the material.
func IsRefusal(answer string) bool {
	return strings.Contains(answer, RefusalMarker)
}

func (g *Generator) buildPrompt(question string, level CognitiveLevel, assembled AssembledContext) string {
	directive, ok := levelDirectives[level]
	if !ok {
		directive = levelDirectives[LevelUnderstand]
	}

	var builder strings.Builder
	builder.WriteString("You are a study assistant. Answer the learner's question using ONLY the tagged passages below.\n")
	builder.WriteString("Rules:\n")
	builder.WriteString("- Every factual sentence in your answer must end with the tag of the passage that supports it, for example [S1] or [S2].\n")
	builder.WriteString("- Only use tags that appear in the passages. Never invent a tag.\n")
	builder.WriteString(fmt.Sprintf("- If the passages do not contain the information needed to answer, reply with exactly %s and nothing else. Do not answer from your own knowledge.\n", RefusalMarker))
	builder.WriteString(fmt.Sprintf("- %s\n", directive))
	builder.WriteString("\nPassages:\n")
	builder.WriteString(assembled.Render())
	builder.WriteString("\n\nQuestion: ")
	builder.WriteString(question)
	builder.WriteString("\n\nAnswer:")
	return builder.String()
}
