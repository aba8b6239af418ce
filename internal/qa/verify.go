package qa

import (
	"context"
	"fmt"

	"studysource-ai/internal/config"
	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/provider"
)

// Verifier runs sentence-level entailment checks against cited sources and
// aggregates them into an answer confidence.
type Verifier struct {
	scorer    provider.EntailmentScorer
	estimator provider.TokenEstimator
	cfg       config.VerifyConfig
}

// NewVerifier creates a hallucination detector.
func NewVerifier(scorer provider.EntailmentScorer, estimator provider.TokenEstimator, cfg config.VerifyConfig) *Verifier {
	return &Verifier{
		scorer:    scorer,
		estimator: estimator,
		cfg:       cfg,
	}
}

// Verify classifies every extracted sentence and returns the verdicts along
// with the aggregate answer confidence.
//
// A sentence is SUPPORTED when the best entailment score across its validly
// cited sources clears the threshold. A sentence whose only tags are invalid
// is UNSUPPORTED; it claimed support that does not exist. A sentence with no
// tags at all is NO_CITATION and can never be SUPPORTED. Both of the latter
// count with full weight in the denominator, so uncited prose always drags
// confidence down.
func (v *Verifier) Verify(ctx context.Context, sentences []ExtractedSentence, assembled AssembledContext) ([]SentenceVerification, float64, error) {
	logger := contextutil.LoggerFromContext(ctx)

	verifications := make([]SentenceVerification, 0, len(sentences))
	var supportedWeight, totalWeight float64

	for _, sentence := range sentences {
		verification := SentenceVerification{
			Sentence:    sentence.Text,
			CitedTags:   sentence.ValidTags,
			InvalidTags: sentence.InvalidTags,
		}

		switch {
		case len(sentence.ValidTags) == 0 && len(sentence.InvalidTags) == 0:
			verification.Status = VerifiedNoCitation
		case len(sentence.ValidTags) == 0:
			verification.Status = VerifiedUnsupported
		default:
			best, err := v.bestEntailment(ctx, sentence, assembled)
			if err != nil {
				return nil, 0, err
			}
			verification.EntailmentScore = best
			if best >= v.cfg.EntailmentThreshold {
				verification.Status = VerifiedSupported
			} else {
				verification.Status = VerifiedUnsupported
			}
		}

		weight := 1.0
		if v.cfg.LengthWeighted {
			weight = float64(v.estimator.Estimate(sentence.Text))
		}
		totalWeight += weight
		if verification.Status == VerifiedSupported {
			supportedWeight += weight
		}

		verifications = append(verifications, verification)
	}

	var confidence float64
	if totalWeight > 0 {
		confidence = supportedWeight / totalWeight
	}

	logger.DebugContext(ctx, "answer verified",
		"sentences", len(verifications),
		"confidence", confidence,
	)

	return verifications, confidence, nil
}

// bestEntailment scores the sentence against each cited source and takes the
// maximum; support from any one source is enough.
func (v *Verifier) bestEntailment(ctx context.Context, sentence ExtractedSentence, assembled AssembledContext) (float64, error) {
	var best float64
	for _, tag := range sentence.ValidTags {
		block := assembled.BlockByTag(tag)
		if block == nil {
			continue
		}
		score, err := v.scorer.Score(ctx, sentence.Text, block.Chunk.Text)
		if err != nil {
			return 0, fmt.Errorf("entailment scoring for tag %s: %w", tag, err)
		}
		if score > best {
			best = score
		}
	}
	return best, nil
}
