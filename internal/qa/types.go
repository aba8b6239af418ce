package qa

import (
	"studysource-ai/internal/index"
)

// CognitiveLevel is the cognitive demand of a question. It shapes the
// generation prompt but never the retrieval or verification behavior.
type CognitiveLevel string

const (
	LevelRemember   CognitiveLevel = "remember"
	LevelUnderstand CognitiveLevel = "understand"
	LevelApply      CognitiveLevel = "apply"
	LevelAnalyze    CognitiveLevel = "analyze"
	LevelEvaluate   CognitiveLevel = "evaluate"
	LevelCreate     CognitiveLevel = "create"
)

// ValidLevel reports whether l is one of the six recognized cognitive levels.
func ValidLevel(l CognitiveLevel) bool {
	switch l {
	case LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze, LevelEvaluate, LevelCreate:
		return true
	}
	return false
}

// Status is the terminal outcome of an answer pipeline run.
type Status string

const (
	// StatusOK means the answer was generated and passed verification.
	StatusOK Status = "OK"
	// StatusInsufficientSource means retrieval found nothing relevant, or the
	// model declined to answer from the provided material. No answer is given.
	StatusInsufficientSource Status = "INSUFFICIENT_SOURCE"
	// StatusLowConfidence means an answer was generated but too little of it
	// is supported by the sources, so the answer text is withheld.
	StatusLowConfidence Status = "LOW_CONFIDENCE"
	// StatusFailed means the pipeline aborted on an error.
	StatusFailed Status = "FAILED"
)

// VerificationStatus classifies a single answer sentence.
type VerificationStatus string

const (
	// VerifiedSupported means the sentence is entailed by at least one of its
	// cited sources.
	VerifiedSupported VerificationStatus = "SUPPORTED"
	// VerifiedUnsupported means the sentence cites sources but none of them
	// entails it.
	VerifiedUnsupported VerificationStatus = "UNSUPPORTED"
	// VerifiedNoCitation means the sentence carries no valid citation, so it
	// cannot be supported.
	VerifiedNoCitation VerificationStatus = "NO_CITATION"
)

// RetrievedCandidate is a chunk surfaced by hybrid retrieval, with the
// normalized sub-scores it was ranked by.
type RetrievedCandidate struct {
	Chunk *index.Chunk
	// VectorScore is the min-max normalized cosine similarity, 0 when the
	// chunk was found by keyword search only.
	VectorScore float64
	// KeywordScore is the min-max normalized lexical score, 0 when the chunk
	// was found by vector search only.
	KeywordScore float64
	// Score is the blended ranking score.
	Score float64
}

// ContextBlock is a chunk admitted into the generation context, labeled with
// the source tag the model cites it by.
type ContextBlock struct {
	// Tag is the citation label, "S1", "S2", ... in admission order.
	Tag    string
	Chunk  *index.Chunk
	Tokens int
}

// AssembledContext is the token-budgeted context handed to generation.
type AssembledContext struct {
	Blocks      []ContextBlock
	TotalTokens int
}

// BlockByTag returns the block with the given tag, or nil.
func (a AssembledContext) BlockByTag(tag string) *ContextBlock {
	for i := range a.Blocks {
		if a.Blocks[i].Tag == tag {
			return &a.Blocks[i]
		}
	}
	return nil
}

// Citation points a tag used in the answer back to its source chunk.
type Citation struct {
	Tag          string `json:"tag"`
	ChunkID      string `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number,omitempty"`
	Section      string `json:"section,omitempty"`
	Snippet      string `json:"snippet"`
}

// SentenceVerification is the per-sentence output of hallucination detection.
type SentenceVerification struct {
	// Sentence is the answer sentence with citation tags stripped.
	Sentence string `json:"sentence"`
	// Status classifies the sentence.
	Status VerificationStatus `json:"status"`
	// EntailmentScore is the best entailment score across the sentence's
	// cited sources. Zero for NO_CITATION sentences.
	EntailmentScore float64 `json:"entailment_score"`
	// CitedTags lists the valid citation tags found in the sentence.
	CitedTags []string `json:"cited_tags,omitempty"`
	// InvalidTags lists citation tags that resolve to no retrieved source.
	// A sentence that is UNSUPPORTED with a non-empty InvalidTags cited a
	// source that does not exist rather than failing the entailment check.
	InvalidTags []string `json:"invalid_tags,omitempty"`
}

// AnswerRequest is a question to answer from indexed material.
type AnswerRequest struct {
	// Question is the learner's question.
	Question string `json:"question"`
	// DocumentIDs optionally restricts retrieval to the given documents.
	// Empty means all indexed documents.
	DocumentIDs []string `json:"document_ids,omitempty"`
	// Level is the cognitive level of the question. Defaults to "understand".
	Level CognitiveLevel `json:"level,omitempty"`
}

// AnswerResponse is the outcome of one answer pipeline run.
type AnswerResponse struct {
	// Answer is the verified answer text with citation tags stripped. Empty
	// unless Status is OK.
	Answer string `json:"answer"`
	// Citations lists every source cited by the answer, in tag order.
	Citations []Citation `json:"citations"`
	// Confidence is the supported fraction of the answer, in [0, 1].
	Confidence float64 `json:"confidence"`
	// Sentences holds the per-sentence verification verdicts.
	Sentences []SentenceVerification `json:"sentences"`
	// Status is the terminal pipeline outcome.
	Status Status `json:"status"`
}
