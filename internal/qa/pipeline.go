package qa

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks studysource-ai/internal/qa Engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studysource-ai/internal/config"
	"studysource-ai/internal/contextutil"
)

// Engine answers learner questions from indexed material with verified
// citations.
type Engine interface {
	// AnswerQuestion runs the full pipeline for one question. A non-nil error
	// always comes with StatusFailed; INSUFFICIENT_SOURCE and LOW_CONFIDENCE
	// are ordinary responses, not errors.
	AnswerQuestion(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
}

// pipeline implements Engine as a strictly linear sequence of stages. Every
// answer that reaches the caller with status OK has passed verification;
// there is no path that returns generated text without it.
type pipeline struct {
	retriever *Retriever
	assembler *Assembler
	generator *Generator
	verifier  *Verifier

	minConfidence float64
	queryTimeout  time.Duration
}

// NewEngine creates the answer pipeline.
func NewEngine(retriever *Retriever, assembler *Assembler, generator *Generator, verifier *Verifier, cfg *config.Config) Engine {
	return &pipeline{
		retriever:     retriever,
		assembler:     assembler,
		generator:     generator,
		verifier:      verifier,
		minConfidence: cfg.Verify.MinConfidence,
		queryTimeout:  time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
	}
}

func (p *pipeline) AnswerQuestion(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if req.Question == "" {
		return failed(), &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if req.Level == "" {
		req.Level = LevelUnderstand
	}
	if !ValidLevel(req.Level) {
		return failed(), &ValidationError{Field: "level", Message: fmt.Sprintf("unknown cognitive level %q", req.Level)}
	}

	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "answer pipeline started",
		"question_length", len(req.Question),
		"level", req.Level,
		"document_filter", len(req.DocumentIDs),
	)

	// Retrieving
	stageStart := time.Now()
	candidates, err := p.retriever.Retrieve(ctx, req.Question, req.DocumentIDs)
	if err != nil {
		return failed(), stageError(ctx, StageRetrieving, err)
	}
	logger.DebugContext(ctx, "stage complete", "stage", StageRetrieving, "duration", time.Since(stageStart).String(), "candidates", len(candidates))

	// No candidate cleared the threshold. This is an ordinary outcome and the
	// generation model must not be invoked for it.
	if len(candidates) == 0 {
		logger.InfoContext(ctx, "no source material above threshold", "duration", time.Since(start).String())
		return AnswerResponse{
			Citations: []Citation{},
			Sentences: []SentenceVerification{},
			Status:    StatusInsufficientSource,
		}, nil
	}

	// Assembling
	stageStart = time.Now()
	assembled := p.assembler.Assemble(ctx, candidates)
	// The top-ranked chunk alone can exceed the token budget. Relevant
	// material exists but none of it is usable, which is a source problem,
	// not a pipeline fault.
	if len(assembled.Blocks) == 0 {
		logger.InfoContext(ctx, "no retrieved chunk fits the token budget",
			"candidates", len(candidates),
			"duration", time.Since(start).String(),
		)
		return AnswerResponse{
			Citations: []Citation{},
			Sentences: []SentenceVerification{},
			Status:    StatusInsufficientSource,
		}, nil
	}
	logger.DebugContext(ctx, "stage complete", "stage", StageAssembling, "duration", time.Since(stageStart).String(), "blocks", len(assembled.Blocks))

	// Generating
	stageStart = time.Now()
	raw, err := p.generator.Generate(ctx, req.Question, req.Level, assembled)
	if err != nil {
		return failed(), stageError(ctx, StageGenerating, err)
	}
	logger.DebugContext(ctx, "stage complete", "stage", StageGenerating, "duration", time.Since(stageStart).String(), "answer_length", len(raw))

	if IsRefusal(raw) {
		logger.InfoContext(ctx, "model declined to answer from material", "duration", time.Since(start).String())
		return AnswerResponse{
			Citations: []Citation{},
			Sentences: []SentenceVerification{},
			Status:    StatusInsufficientSource,
		}, nil
	}

	// Extracting
	stageStart = time.Now()
	extraction := ExtractCitations(raw, assembled)
	if len(extraction.Sentences) == 0 {
		return failed(), stageError(ctx, StageExtracting, fmt.Errorf("generated answer contains no sentences"))
	}
	logger.DebugContext(ctx, "stage complete", "stage", StageExtracting, "duration", time.Since(stageStart).String(), "sentences", len(extraction.Sentences), "citations", len(extraction.Citations))

	// Verifying
	stageStart = time.Now()
	verifications, confidence, err := p.verifier.Verify(ctx, extraction.Sentences, assembled)
	if err != nil {
		return failed(), stageError(ctx, StageVerifying, err)
	}
	logger.DebugContext(ctx, "stage complete", "stage", StageVerifying, "duration", time.Since(stageStart).String(), "confidence", confidence)

	response := AnswerResponse{
		Answer:     extraction.Answer,
		Citations:  extraction.Citations,
		Confidence: confidence,
		Sentences:  verifications,
		Status:     StatusOK,
	}

	// Below the confidence floor the answer text is withheld; the caller gets
	// the verdicts and citations so it can explain the refusal.
	if confidence < p.minConfidence {
		response.Answer = ""
		response.Status = StatusLowConfidence
	}

	logger.InfoContext(ctx, "answer pipeline finished",
		"status", response.Status,
		"confidence", response.Confidence,
		"citations", len(response.Citations),
		"duration", time.Since(start).String(),
	)
	return response, nil
}

func failed() AnswerResponse {
	return AnswerResponse{
		Citations: []Citation{},
		Sentences: []SentenceVerification{},
		Status:    StatusFailed,
	}
}

// stageError wraps an error with its stage, translating a blown deadline into
// ErrTimeout so callers can tell a slow pipeline from a broken one.
func stageError(ctx context.Context, stage Stage, err error) error {
	logger := contextutil.LoggerFromContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	logger.ErrorContext(ctx, "pipeline stage failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}
