package qa

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"studysource-ai/internal/config"
	"studysource-ai/internal/provider"
	"studysource-ai/internal/provider/mocks"
)

func testVerifyConfig() config.VerifyConfig {
	return config.VerifyConfig{
		EntailmentThreshold: 0.6,
		MinConfidence:       0.7,
		LengthWeighted:      false,
	}
}

func TestVerifySupportedSentence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)
	scorer.EXPECT().
		Score(gomock.Any(), "The interval halves each step.", gomock.Any()).
		Return(0.9, nil)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, confidence, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "The interval halves each step.", ValidTags: []string{"S1"}},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verifications[0].Status != VerifiedSupported {
		t.Errorf("status = %s, want SUPPORTED", verifications[0].Status)
	}
	if verifications[0].EntailmentScore != 0.9 {
		t.Errorf("score = %f, want 0.9", verifications[0].EntailmentScore)
	}
	if confidence != 1 {
		t.Errorf("confidence = %f, want 1", confidence)
	}
}

func TestVerifyTakesMaxAcrossCitations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)
	// One weak source and one strong source; the strong one carries it.
	scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.2, nil)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.8, nil)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, _, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "claim", ValidTags: []string{"S1", "S2"}},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verifications[0].Status != VerifiedSupported {
		t.Errorf("status = %s, want SUPPORTED from the stronger source", verifications[0].Status)
	}
	if verifications[0].EntailmentScore != 0.8 {
		t.Errorf("score = %f, want max 0.8", verifications[0].EntailmentScore)
	}
}

func TestVerifyBelowThresholdUnsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.4, nil)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, confidence, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "claim", ValidTags: []string{"S1"}},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verifications[0].Status != VerifiedUnsupported {
		t.Errorf("status = %s, want UNSUPPORTED", verifications[0].Status)
	}
	if confidence != 0 {
		t.Errorf("confidence = %f, want 0", confidence)
	}
}

func TestVerifyNoCitationNeverSupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The scorer must never be called for an uncited sentence.
	scorer := mocks.NewMockEntailmentScorer(ctrl)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, confidence, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "Everyone knows this."},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verifications[0].Status != VerifiedNoCitation {
		t.Errorf("status = %s, want NO_CITATION", verifications[0].Status)
	}
	if confidence != 0 {
		t.Errorf("confidence = %f, want 0", confidence)
	}
}

func TestVerifyInvalidTagOnlyIsUnsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, _, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "claims a phantom source", InvalidTags: []string{"S9"}},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if verifications[0].Status != VerifiedUnsupported {
		t.Errorf("status = %s, want UNSUPPORTED for invalid-only tags", verifications[0].Status)
	}
	// The unresolved tag must reach the caller so a phantom citation stays
	// distinguishable from a failed entailment check.
	if len(verifications[0].InvalidTags) != 1 || verifications[0].InvalidTags[0] != "S9" {
		t.Errorf("InvalidTags = %v, want [S9]", verifications[0].InvalidTags)
	}
	if len(verifications[0].CitedTags) != 0 {
		t.Errorf("CitedTags = %v, want empty", verifications[0].CitedTags)
	}
}

func TestVerifyConfidenceFraction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), "supported one", gomock.Any()).Return(0.9, nil)
	scorer.EXPECT().Score(gomock.Any(), "supported two", gomock.Any()).Return(0.7, nil)
	scorer.EXPECT().Score(gomock.Any(), "unsupported", gomock.Any()).Return(0.1, nil)

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	_, confidence, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "supported one", ValidTags: []string{"S1"}},
		{Text: "supported two", ValidTags: []string{"S1"}},
		{Text: "unsupported", ValidTags: []string{"S1"}},
		{Text: "no citation at all"},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5 (2 of 4 supported)", confidence)
	}
}

func TestVerifyLengthWeighted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	long := "This is a much longer supported sentence that contributes far more weight to the aggregate answer confidence than the short one does."
	scorer := mocks.NewMockEntailmentScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), long, gomock.Any()).Return(0.9, nil)

	cfg := testVerifyConfig()
	cfg.LengthWeighted = true
	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), cfg)
	_, confidence, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: long, ValidTags: []string{"S1"}},
		{Text: "Short unsupported."},
	}, extractionContext())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if confidence <= 0.5 {
		t.Errorf("confidence = %f, want > 0.5 when the supported sentence dominates by length", confidence)
	}
}

func TestVerifyScorerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockEntailmentScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any(), gomock.Any()).Return(0.0, errors.New("scorer down"))

	v := NewVerifier(scorer, provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	_, _, err := v.Verify(context.Background(), []ExtractedSentence{
		{Text: "claim", ValidTags: []string{"S1"}},
	}, extractionContext())
	if err == nil {
		t.Fatal("Verify() error = nil, want error")
	}
}

func TestVerifyEmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	v := NewVerifier(mocks.NewMockEntailmentScorer(ctrl), provider.NewHeuristicTokenEstimator(), testVerifyConfig())
	verifications, confidence, err := v.Verify(context.Background(), nil, AssembledContext{})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(verifications) != 0 || confidence != 0 {
		t.Errorf("Verify(nil) = %v, %f; want empty, 0", verifications, confidence)
	}
}
