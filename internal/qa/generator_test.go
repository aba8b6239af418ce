package qa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"studysource-ai/internal/config"
	"studysource-ai/internal/index"
	"studysource-ai/internal/provider"
	"studysource-ai/internal/provider/mocks"
)

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		MaxTokens:   256,
		Temperature: 0.1,
		MaxAttempts: 3,
	}
}

func testAssembled() AssembledContext {
	return AssembledContext{
		Blocks: []ContextBlock{
			{
				Tag: "S1",
				Chunk: &index.Chunk{
					ID:           "c1",
					DocumentID:   "doc-1",
					DocumentName: "algorithms.pdf",
					Text:         "Binary search halves the interval on each step.",
					PageNumber:   12,
				},
				Tokens: 12,
			},
		},
		TotalTokens: 12,
	}
}

func TestGenerateSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockCompletionClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any(), 256, 0.1).
		DoAndReturn(func(_ context.Context, prompt string, _ int, _ float64) (string, error) {
			if !strings.Contains(prompt, "[S1]") {
				t.Error("prompt missing tagged passage")
			}
			if !strings.Contains(prompt, "How does binary search work?") {
				t.Error("prompt missing question")
			}
			if !strings.Contains(prompt, RefusalMarker) {
				t.Error("prompt missing refusal instruction")
			}
			return "Binary search halves the interval [S1].", nil
		})

	g := NewGenerator(client, testGenerationConfig())
	answer, err := g.Generate(context.Background(), "How does binary search work?", LevelUnderstand, testAssembled())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer == "" {
		t.Error("Generate() returned empty answer")
	}
}

func TestGenerateRetriesTransientThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockCompletionClient(ctrl)
	transient := &provider.TransientError{Err: errors.New("rate limited")}
	gomock.InOrder(
		client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", transient),
		client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("answer [S1].", nil),
	)

	g := NewGenerator(client, testGenerationConfig())
	answer, err := g.Generate(context.Background(), "q", LevelRemember, testAssembled())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "answer [S1]." {
		t.Errorf("Generate() = %q", answer)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockCompletionClient(ctrl)
	transient := &provider.TransientError{Err: errors.New("upstream unavailable")}
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", transient).
		Times(3)

	g := NewGenerator(client, testGenerationConfig())
	start := time.Now()
	_, err := g.Generate(context.Background(), "q", LevelRemember, testAssembled())
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrGenerationUnavailable", err)
	}
	// Two backoffs at 500ms and 1s
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Generate() returned after %v, expected backoff delays", elapsed)
	}
}

func TestGenerateNonTransientFailsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockCompletionClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("invalid request")).
		Times(1)

	g := NewGenerator(client, testGenerationConfig())
	_, err := g.Generate(context.Background(), "q", LevelRemember, testAssembled())
	if err == nil {
		t.Fatal("Generate() error = nil, want error")
	}
	if errors.Is(err, ErrGenerationUnavailable) {
		t.Error("non-transient failure should not map to ErrGenerationUnavailable")
	}
}

func TestGenerateContextCanceledDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockCompletionClient(ctrl)
	transient := &provider.TransientError{Err: errors.New("rate limited")}
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", transient)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	g := NewGenerator(client, testGenerationConfig())
	_, err := g.Generate(ctx, "q", LevelRemember, testAssembled())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Generate() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestGenerateLevelDirectives(t *testing.T) {
	levels := []CognitiveLevel{LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze, LevelEvaluate, LevelCreate}
	g := NewGenerator(nil, testGenerationConfig())

	seen := make(map[string]bool)
	for _, level := range levels {
		prompt := g.buildPrompt("q", level, testAssembled())
		directive := levelDirectives[level]
		if !strings.Contains(prompt, directive) {
			t.Errorf("prompt for level %s missing its directive", level)
		}
		if seen[directive] {
			t.Errorf("level %s shares a directive with another level", level)
		}
		seen[directive] = true
	}
}

func TestIsRefusal(t *testing.T) {
	if !IsRefusal(RefusalMarker) {
		t.Error("bare marker should be a refusal")
	}
	if !IsRefusal("I must decline: " + RefusalMarker) {
		t.Error("marker inside text should be a refusal")
	}
	if IsRefusal("Binary search halves the interval [S1].") {
		t.Error("normal answer misclassified as refusal")
	}
}
