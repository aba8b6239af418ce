package qa

import (
	"context"
	"fmt"
	"strings"

	"studysource-ai/internal/config"
	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/provider"
)

// Assembler packs retrieved candidates into a token-budgeted generation
// context, skipping near-duplicate chunks and labeling each admitted chunk
// with a sequential source tag.
type Assembler struct {
	estimator provider.TokenEstimator
	cfg       config.ContextConfig
}

// NewAssembler creates a context assembler.
func NewAssembler(estimator provider.TokenEstimator, cfg config.ContextConfig) *Assembler {
	return &Assembler{
		estimator: estimator,
		cfg:       cfg,
	}
}

// Assemble walks candidates in rank order, admitting each chunk that is not
// a near-duplicate of an already admitted chunk from the same document, and
// stops as soon as the next chunk would exceed the token budget. The
// admitted chunks are always a prefix of the ranking, minus dedup skips.
// Tags are assigned in admission order, so "S1" is always the highest-ranked
// admitted chunk.
func (a *Assembler) Assemble(ctx context.Context, candidates []RetrievedCandidate) AssembledContext {
	logger := contextutil.LoggerFromContext(ctx)

	assembled := AssembledContext{
		Blocks: make([]ContextBlock, 0, len(candidates)),
	}

	var stoppedAtBudget bool
	var skippedDup int
	for _, cand := range candidates {
		tokens := a.estimator.Estimate(cand.Chunk.Text)
		if assembled.TotalTokens+tokens > a.cfg.TokenBudget {
			stoppedAtBudget = true
			break
		}

		if a.isNearDuplicate(cand, assembled.Blocks) {
			skippedDup++
			continue
		}

		assembled.Blocks = append(assembled.Blocks, ContextBlock{
			Tag:    fmt.Sprintf("S%d", len(assembled.Blocks)+1),
			Chunk:  cand.Chunk,
			Tokens: tokens,
		})
		assembled.TotalTokens += tokens
	}

	logger.DebugContext(ctx, "context assembled",
		"blocks", len(assembled.Blocks),
		"total_tokens", assembled.TotalTokens,
		"stopped_at_budget", stoppedAtBudget,
		"skipped_near_duplicate", skippedDup,
	)

	return assembled
}

// isNearDuplicate reports whether the candidate overlaps an already admitted
// chunk from the same document beyond the dedup threshold. Overlap across
// documents is kept; corroboration from a second source is signal, not noise.
func (a *Assembler) isNearDuplicate(cand RetrievedCandidate, blocks []ContextBlock) bool {
	if a.cfg.DedupThreshold <= 0 {
		return false
	}
	for _, block := range blocks {
		if block.Chunk.DocumentID != cand.Chunk.DocumentID {
			continue
		}
		if tokenOverlap(cand.Chunk.Text, block.Chunk.Text) >= a.cfg.DedupThreshold {
			return true
		}
	}
	return false
}

// tokenOverlap computes Jaccard similarity over lowercased token sets.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var intersection int
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[strings.Trim(field, ".,;:!?()[]\"'")] = struct{}{}
	}
	delete(set, "")
	return set
}

// Render formats the assembled context for the generation prompt. Each block
// opens with its tag and source attribution so the model can cite it.
func (a AssembledContext) Render() string {
	var builder strings.Builder
	for _, block := range a.Blocks {
		builder.WriteString(fmt.Sprintf("[%s] %s", block.Tag, block.Chunk.DocumentName))
		if block.Chunk.PageNumber > 0 {
			builder.WriteString(fmt.Sprintf(", page %d", block.Chunk.PageNumber))
		}
		if block.Chunk.Section != "" {
			builder.WriteString(fmt.Sprintf(", section %q", block.Chunk.Section))
		}
		builder.WriteString(":\n")
		builder.WriteString(block.Chunk.Text)
		builder.WriteString("\n\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}
