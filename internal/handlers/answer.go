package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/index"
	"studysource-ai/internal/qa"
)

// AnswerHandler handles HTTP requests for question answering.
type AnswerHandler struct {
	engine qa.Engine
}

// NewAnswerHandler creates a new AnswerHandler.
func NewAnswerHandler(engine qa.Engine) *AnswerHandler {
	return &AnswerHandler{engine: engine}
}

// AnswerRequest represents the HTTP request payload for question answering.
// This mirrors qa.AnswerRequest but is defined here for HTTP layer separation.
//
// swagger:model AnswerRequest
type AnswerRequest struct {
	// The learner's question
	Question string `json:"question"`
	// Cognitive level of the question: remember, understand, apply, analyze, evaluate or create
	Level string `json:"level,omitempty"`
	// Optional document IDs to restrict retrieval to
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// AnswerResponse represents the HTTP response payload for question answering.
//
// swagger:model AnswerResponse
type AnswerResponse struct {
	// The verified answer, empty unless status is OK
	Answer string `json:"answer"`
	// Sources cited by the answer, in tag order
	Citations []qa.Citation `json:"citations"`
	// Supported fraction of the answer in [0, 1]
	Confidence float64 `json:"confidence"`
	// Per-sentence verification verdicts
	Sentences []qa.SentenceVerification `json:"sentences"`
	// Terminal pipeline status: OK, INSUFFICIENT_SOURCE, LOW_CONFIDENCE or FAILED
	Status string `json:"status"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for question answering.
//
// swagger:route POST /api/v1/answer answerQuestion
//
// # Answer a question from indexed material
//
// Runs the retrieval and verification pipeline for the question. The answer is
// only returned when every claim in it could be verified against the indexed
// documents; otherwise the status field explains why it was withheld.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Pipeline completed; see the status field for the outcome
//	  schema:
//	    "$ref": "#/definitions/AnswerResponse"
//	'400':
//	  description: Bad request (empty question or unknown cognitive level)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Generation model unavailable after retries
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'504':
//	  description: Per-query deadline exceeded
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AnswerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	qaResp, err := h.engine.AnswerQuestion(ctx, qa.AnswerRequest{
		Question:    req.Question,
		DocumentIDs: req.DocumentIDs,
		Level:       qa.CognitiveLevel(req.Level),
	})
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	resp := AnswerResponse{
		Answer:     qaResp.Answer,
		Citations:  qaResp.Citations,
		Confidence: qaResp.Confidence,
		Sentences:  qaResp.Sentences,
		Status:     string(qaResp.Status),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleEngineError maps pipeline errors to HTTP status codes.
func (h *AnswerHandler) handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "answer engine error", "error", err)

	switch {
	case errors.Is(err, qa.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, qa.ErrGenerationUnavailable):
		writeError(w, http.StatusBadGateway, "Generation model unavailable, try again later")
	case errors.Is(err, qa.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Query deadline exceeded")
	case errors.Is(err, index.ErrDimensionMismatch):
		// Embedding provider drift; retrying will not help until the index is
		// rebuilt with matching vectors.
		writeError(w, http.StatusInternalServerError, "Embedding dimension mismatch")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
