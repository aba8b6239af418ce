package qa

import (
	"context"
	"fmt"
	"sort"

	"studysource-ai/internal/config"
	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/index"
	"studysource-ai/internal/provider"
)

// Retriever runs hybrid retrieval: a vector search and a keyword search over
// the chunk index, merged into one blended ranking.
type Retriever struct {
	index    *index.Index
	embedder provider.Embedder
	cfg      config.RetrievalConfig
}

// NewRetriever creates a hybrid retriever over the given index.
func NewRetriever(ix *index.Index, embedder provider.Embedder, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		index:    ix,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Retrieve returns up to TopK candidates for the question, ranked by the
// blended score. An empty result is not an error; it means the indexed
// material has nothing relevant above the similarity threshold.
func (r *Retriever) Retrieve(ctx context.Context, question string, documentIDs []string) ([]RetrievedCandidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}
	queryVector := embeddings[0]

	// Each sub-search overfetches so that chunks strong in only one signal
	// survive the merge.
	fetchK := r.cfg.TopK * r.cfg.OverfetchFactor
	if fetchK < r.cfg.TopK {
		fetchK = r.cfg.TopK
	}

	type searchOut struct {
		hits []index.Hit
		err  error
	}

	vecCh := make(chan searchOut, 1)
	kwCh := make(chan searchOut, 1)

	go func() {
		hits, err := r.index.VectorSearch(ctx, queryVector, fetchK, documentIDs)
		vecCh <- searchOut{hits: hits, err: err}
	}()
	go func() {
		hits, err := r.index.KeywordSearch(ctx, question, fetchK, documentIDs)
		kwCh <- searchOut{hits: hits, err: err}
	}()

	vec := <-vecCh
	kw := <-kwCh
	if vec.err != nil {
		return nil, fmt.Errorf("vector search: %w", vec.err)
	}
	if kw.err != nil {
		return nil, fmt.Errorf("keyword search: %w", kw.err)
	}

	candidates := r.merge(vec.hits, kw.hits)

	logger.DebugContext(ctx, "hybrid retrieval merged",
		"vector_hits", len(vec.hits),
		"keyword_hits", len(kw.hits),
		"candidates", len(candidates),
	)

	return candidates, nil
}

// merge normalizes each hit list independently, blends the normalized scores
// with Alpha for ranking, and drops candidates whose raw blended evidence
// falls below the similarity threshold. The threshold works on raw scores
// because min-max normalization always maps the best hit of a list to 1, so
// a normalized score says nothing about absolute relevance.
func (r *Retriever) merge(vecHits, kwHits []index.Hit) []RetrievedCandidate {
	vecNorm := normalizeScores(vecHits)
	kwNorm := normalizeScores(kwHits)

	type rawScores struct {
		vec float64
		kw  float64
	}
	raw := make(map[string]*rawScores, len(vecHits)+len(kwHits))

	byID := make(map[string]*RetrievedCandidate, len(vecHits)+len(kwHits))
	for _, hit := range vecHits {
		byID[hit.Chunk.ID] = &RetrievedCandidate{
			Chunk:       hit.Chunk,
			VectorScore: vecNorm[hit.Chunk.ID],
		}
		vec := hit.Score
		if vec < 0 {
			vec = 0
		}
		raw[hit.Chunk.ID] = &rawScores{vec: vec}
	}
	for _, hit := range kwHits {
		cand, ok := byID[hit.Chunk.ID]
		if !ok {
			cand = &RetrievedCandidate{Chunk: hit.Chunk}
			byID[hit.Chunk.ID] = cand
			raw[hit.Chunk.ID] = &rawScores{}
		}
		cand.KeywordScore = kwNorm[hit.Chunk.ID]
		raw[hit.Chunk.ID].kw = hit.Score
	}

	candidates := make([]RetrievedCandidate, 0, len(byID))
	for id, cand := range byID {
		rawBlend := r.cfg.Alpha*raw[id].vec + (1-r.cfg.Alpha)*raw[id].kw
		if rawBlend < r.cfg.SimilarityThreshold {
			continue
		}
		cand.Score = r.cfg.Alpha*cand.VectorScore + (1-r.cfg.Alpha)*cand.KeywordScore
		candidates = append(candidates, *cand)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Chunk.OrdinalIndex != candidates[j].Chunk.OrdinalIndex {
			return candidates[i].Chunk.OrdinalIndex < candidates[j].Chunk.OrdinalIndex
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}
	return candidates
}

// normalizeScores min-max normalizes hit scores into [0, 1], keyed by chunk
// ID. When every hit carries the same score they all normalize to 1, so a
// single strong hit is not zeroed out.
func normalizeScores(hits []index.Hit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	norms := make(map[string]float64, len(hits))
	if maxScore == minScore {
		for _, hit := range hits {
			norms[hit.Chunk.ID] = 1
		}
		return norms
	}
	for _, hit := range hits {
		norms[hit.Chunk.ID] = (hit.Score - minScore) / (maxScore - minScore)
	}
	return norms
}
