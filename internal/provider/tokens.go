package provider

import "strings"

// HeuristicTokenEstimator approximates token counts without a model-specific
// tokenizer. English text averages roughly four characters per token; the
// word count acts as a floor for texts with many short words.
type HeuristicTokenEstimator struct{}

// NewHeuristicTokenEstimator creates a new heuristic token estimator.
func NewHeuristicTokenEstimator() *HeuristicTokenEstimator {
	return &HeuristicTokenEstimator{}
}

// Estimate returns the approximate token count of text.
func (e *HeuristicTokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	byChars := (len(text) + 3) / 4
	byWords := len(strings.Fields(text))
	if byWords > byChars {
		return byWords
	}
	return byChars
}
