package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"studysource-ai/internal/config"
	"studysource-ai/internal/index"
	"studysource-ai/internal/provider"
	"studysource-ai/internal/provider/mocks"
)

type pipelineFixture struct {
	embedder *mocks.MockEmbedder
	client   *mocks.MockCompletionClient
	scorer   *mocks.MockEntailmentScorer
	engine   Engine
}

func newPipelineFixture(t *testing.T, ctrl *gomock.Controller, chunks []*index.Chunk) *pipelineFixture {
	t.Helper()

	cfg := &config.Config{
		Retrieval: config.RetrievalConfig{
			TopK:                4,
			OverfetchFactor:     3,
			Alpha:               0.7,
			SimilarityThreshold: 0.1,
		},
		Context: config.ContextConfig{
			TokenBudget:    2048,
			DedupThreshold: 0.9,
		},
		Generation: config.GenerationConfig{
			MaxTokens:   256,
			Temperature: 0.1,
			MaxAttempts: 1,
		},
		Verify: config.VerifyConfig{
			EntailmentThreshold: 0.6,
			MinConfidence:       0.7,
		},
	}

	ix := seedIndex(t, chunks)
	embedder := mocks.NewMockEmbedder(ctrl)
	client := mocks.NewMockCompletionClient(ctrl)
	scorer := mocks.NewMockEntailmentScorer(ctrl)
	estimator := provider.NewHeuristicTokenEstimator()

	engine := NewEngine(
		NewRetriever(ix, embedder, cfg.Retrieval),
		NewAssembler(estimator, cfg.Context),
		NewGenerator(client, cfg.Generation),
		NewVerifier(scorer, estimator, cfg.Verify),
		cfg,
	)
	return &pipelineFixture{
		embedder: embedder,
		client:   client,
		scorer:   scorer,
		engine:   engine,
	}
}

func binarySearchChunks() []*index.Chunk {
	return []*index.Chunk{
		{
			ID:           "c1",
			DocumentID:   "doc-1",
			DocumentName: "algorithms.pdf",
			Text:         "Binary search halves the search interval on each comparison.",
			Embedding:    []float32{1, 0, 0},
			PageNumber:   12,
			Section:      "Searching",
			OrdinalIndex: 0,
		},
		{
			ID:           "c2",
			DocumentID:   "doc-1",
			DocumentName: "algorithms.pdf",
			Text:         "Binary search requires the input array to be sorted.",
			Embedding:    []float32{0.9, 0.1, 0},
			PageNumber:   13,
			Section:      "Searching",
			OrdinalIndex: 1,
		},
	}
}

func TestAnswerQuestionOK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Binary search halves the interval on each comparison [S1]. It needs sorted input [S2].", nil)
	f.scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.9, nil).Times(2)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "How does binary search work?",
		Level:    LevelUnderstand,
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusOK {
		t.Fatalf("status = %s, want OK", resp.Status)
	}
	if resp.Answer == "" {
		t.Error("answer withheld on OK status")
	}
	if resp.Confidence != 1 {
		t.Errorf("confidence = %f, want 1", resp.Confidence)
	}
	if len(resp.Citations) != 2 {
		t.Errorf("citations = %d, want 2", len(resp.Citations))
	}
	for _, sentence := range resp.Sentences {
		if sentence.Status != VerifiedSupported {
			t.Errorf("sentence %q status = %s, want SUPPORTED", sentence.Sentence, sentence.Status)
		}
	}
	// Every citation must resolve to a retrieved chunk.
	valid := map[string]bool{"c1": true, "c2": true}
	for _, citation := range resp.Citations {
		if !valid[citation.ChunkID] {
			t.Errorf("citation points at unretrieved chunk %s", citation.ChunkID)
		}
	}
}

func TestAnswerQuestionInsufficientSourceSkipsGeneration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Index content is orthogonal to the query and the threshold is high, so
	// retrieval comes back empty. The completion client must never be called.
	f := newPipelineFixture(t, ctrl, []*index.Chunk{
		{
			ID:           "c1",
			DocumentID:   "doc-1",
			DocumentName: "biology.pdf",
			Text:         "Photosynthesis converts light into chemical energy.",
			Embedding:    []float32{0, 1, 0},
			OrdinalIndex: 0,
		},
	})
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "What is the capital of France?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusInsufficientSource {
		t.Fatalf("status = %s, want INSUFFICIENT_SOURCE", resp.Status)
	}
	if resp.Answer != "" {
		t.Error("answer present on INSUFFICIENT_SOURCE")
	}
}

func TestAnswerQuestionInsufficientSourceWhenNothingFitsBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := &config.Config{
		Retrieval: config.RetrievalConfig{
			TopK:                4,
			OverfetchFactor:     3,
			Alpha:               0.7,
			SimilarityThreshold: 0.1,
		},
		// Budget below the smallest chunk, so assembly admits nothing.
		Context: config.ContextConfig{
			TokenBudget:    5,
			DedupThreshold: 0.9,
		},
		Generation: config.GenerationConfig{MaxTokens: 256, Temperature: 0.1, MaxAttempts: 1},
		Verify:     config.VerifyConfig{EntailmentThreshold: 0.6, MinConfidence: 0.7},
	}

	ix := seedIndex(t, []*index.Chunk{
		{
			ID:           "c1",
			DocumentID:   "doc-1",
			DocumentName: "algorithms.pdf",
			Text:         strings.Repeat("binary search halves the interval ", 20),
			Embedding:    []float32{1, 0, 0},
			OrdinalIndex: 0,
		},
	})
	embedder := mocks.NewMockEmbedder(ctrl)
	client := mocks.NewMockCompletionClient(ctrl)
	scorer := mocks.NewMockEntailmentScorer(ctrl)
	estimator := provider.NewHeuristicTokenEstimator()

	engine := NewEngine(
		NewRetriever(ix, embedder, cfg.Retrieval),
		NewAssembler(estimator, cfg.Context),
		NewGenerator(client, cfg.Generation),
		NewVerifier(scorer, estimator, cfg.Verify),
		cfg,
	)

	// Retrieval finds the chunk but it cannot be used; the completion client
	// must never be called.
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)

	resp, err := engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "How does binary search work?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusInsufficientSource {
		t.Fatalf("status = %s, want INSUFFICIENT_SOURCE", resp.Status)
	}
	if resp.Answer != "" {
		t.Error("answer present on INSUFFICIENT_SOURCE")
	}
}

func TestAnswerQuestionModelRefusal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(RefusalMarker, nil)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "What is the average-case complexity of bogosort?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusInsufficientSource {
		t.Fatalf("status = %s, want INSUFFICIENT_SOURCE on refusal", resp.Status)
	}
}

func TestAnswerQuestionLowConfidenceWithholdsAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	// Two sentences: one cited but unsupported, one uncited.
	f.client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Binary search was invented in 1946 [S1]. It is everyone's favorite algorithm.", nil)
	f.scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.1, nil)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "When was binary search invented?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusLowConfidence {
		t.Fatalf("status = %s, want LOW_CONFIDENCE", resp.Status)
	}
	if resp.Answer != "" {
		t.Errorf("answer = %q, want withheld on LOW_CONFIDENCE", resp.Answer)
	}
	if len(resp.Sentences) != 2 {
		t.Fatalf("sentences = %d, want 2", len(resp.Sentences))
	}
	if resp.Sentences[0].Status != VerifiedUnsupported {
		t.Errorf("cited sentence status = %s, want UNSUPPORTED", resp.Sentences[0].Status)
	}
	if resp.Sentences[1].Status != VerifiedNoCitation {
		t.Errorf("uncited sentence status = %s, want NO_CITATION", resp.Sentences[1].Status)
	}
}

func TestAnswerQuestionGenerationUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &provider.TransientError{Err: errors.New("rate limited")})

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "How does binary search work?",
	})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("error = %v, want ErrGenerationUnavailable", err)
	}
	if resp.Status != StatusFailed {
		t.Errorf("status = %s, want FAILED", resp.Status)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatal("error does not carry stage information")
	}
	if stageErr.Stage != StageGenerating {
		t.Errorf("stage = %s, want generating", stageErr.Stage)
	}
}

func TestAnswerQuestionDimensionMismatchFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	// Embedding provider drifted to a different dimensionality.
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "How does binary search work?",
	})
	if !errors.Is(err, index.ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
	if resp.Status != StatusFailed {
		t.Errorf("status = %s, want FAILED", resp.Status)
	}
}

func TestAnswerQuestionValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, nil)

	tests := []struct {
		name string
		req  AnswerRequest
	}{
		{"empty question", AnswerRequest{Question: ""}},
		{"unknown level", AnswerRequest{Question: "q", Level: CognitiveLevel("memorize")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.engine.AnswerQuestion(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
			if resp.Status != StatusFailed {
				t.Errorf("status = %s, want FAILED", resp.Status)
			}
		})
	}
}

func TestAnswerQuestionDefaultsLevel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newPipelineFixture(t, ctrl, binarySearchChunks())
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.client.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Binary search halves the interval [S1].", nil)
	f.scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.9, nil)

	resp, err := f.engine.AnswerQuestion(context.Background(), AnswerRequest{
		Question: "How does binary search work?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if resp.Status != StatusOK {
		t.Errorf("status = %s, want OK with defaulted level", resp.Status)
	}
}
