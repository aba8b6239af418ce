package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/vectorstore"
)

// Index is the chunk index: it owns chunk visibility and metadata, and
// delegates approximate nearest-neighbor search to a vectorstore backend.
//
// All mutations are all-or-nothing per document relative to concurrent
// searches: a reader either sees every chunk of a document or none of them.
// The internal lock is never held across a call to the vector store backend.
type Index struct {
	store      vectorstore.VectorStore
	collection string
	vectorSize int

	mu         sync.RWMutex
	byID       map[string]*Chunk
	byDocument map[string][]string
}

// New creates a chunk index over the given backend.
// The collection must already exist with the given vector size
// (vectorstore.EnsureCollection).
func New(store vectorstore.VectorStore, collection string, vectorSize int) *Index {
	return &Index{
		store:      store,
		collection: collection,
		vectorSize: vectorSize,
		byID:       make(map[string]*Chunk),
		byDocument: make(map[string][]string),
	}
}

// Upsert indexes the given chunks, replacing the full chunk set of every
// document that appears in the batch. Returns ErrDimensionMismatch if any
// chunk's embedding does not match the index dimension; nothing is indexed
// in that case.
func (ix *Index) Upsert(ctx context.Context, chunks []*Chunk) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) != ix.vectorSize {
			return fmt.Errorf("chunk %s has dimension %d, index expects %d: %w",
				chunk.ID, len(chunk.Embedding), ix.vectorSize, ErrDimensionMismatch)
		}
	}

	byDoc := make(map[string][]*Chunk)
	for _, chunk := range chunks {
		byDoc[chunk.DocumentID] = append(byDoc[chunk.DocumentID], chunk)
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, vectorstore.Point{
			ID:  chunk.ID,
			Vec: chunk.Embedding,
			Meta: map[string]any{
				"document_id": chunk.DocumentID,
			},
		})
	}

	// Write vectors before making the chunks visible, so a concurrent search
	// can never surface a chunk whose vector is missing from the backend.
	if err := ix.store.Upsert(ctx, ix.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	var stale []string
	ix.mu.Lock()
	for docID, docChunks := range byDoc {
		newIDs := make(map[string]struct{}, len(docChunks))
		for _, chunk := range docChunks {
			newIDs[chunk.ID] = struct{}{}
		}
		for _, oldID := range ix.byDocument[docID] {
			if _, kept := newIDs[oldID]; !kept {
				stale = append(stale, oldID)
			}
			delete(ix.byID, oldID)
		}

		ids := make([]string, 0, len(docChunks))
		for _, chunk := range docChunks {
			ix.byID[chunk.ID] = chunk
			ids = append(ids, chunk.ID)
		}
		ix.byDocument[docID] = ids
	}
	ix.mu.Unlock()

	// Stale vectors are invisible already; removing them from the backend is
	// cleanup, not a correctness requirement.
	if len(stale) > 0 {
		if err := ix.store.Delete(ctx, ix.collection, stale); err != nil {
			logger.WarnContext(ctx, "failed to delete stale vectors", "count", len(stale), "error", err)
		}
	}

	logger.InfoContext(ctx, "chunks indexed", "documents", len(byDoc), "chunks", len(chunks))
	return nil
}

// Remove deletes every chunk of a document. Concurrent searches observe
// either the full document or nothing.
func (ix *Index) Remove(ctx context.Context, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	ix.mu.Lock()
	ids := ix.byDocument[documentID]
	for _, id := range ids {
		delete(ix.byID, id)
	}
	delete(ix.byDocument, documentID)
	ix.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	if err := ix.store.Delete(ctx, ix.collection, ids); err != nil {
		logger.WarnContext(ctx, "failed to delete vectors for removed document", "document_id", documentID, "error", err)
	}

	logger.InfoContext(ctx, "document removed from index", "document_id", documentID, "chunks", len(ids))
	return nil
}

// VectorSearch returns up to k chunks by cosine similarity to queryVector,
// optionally restricted to documentIDs. Returns ErrDimensionMismatch if the
// query vector dimension differs from the indexed dimension.
func (ix *Index) VectorSearch(ctx context.Context, queryVector []float32, k int, documentIDs []string) ([]Hit, error) {
	if len(queryVector) != ix.vectorSize {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d: %w",
			len(queryVector), ix.vectorSize, ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	results, err := ix.store.Search(ctx, ix.collection, queryVector, k, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		// The backend may return points for chunks removed since the vectors
		// were written; those are filtered here against current visibility.
		chunk, ok := ix.byID[result.PointID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Chunk: chunk, Score: float64(result.Score)})
	}
	return hits, nil
}

// KeywordSearch returns up to k chunks ranked by term-frequency lexical score
// against queryText, optionally restricted to documentIDs. Chunks scoring
// zero are not returned.
func (ix *Index) KeywordSearch(ctx context.Context, queryText string, k int, documentIDs []string) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	var docFilter map[string]struct{}
	if len(documentIDs) > 0 {
		docFilter = make(map[string]struct{}, len(documentIDs))
		for _, id := range documentIDs {
			docFilter[id] = struct{}{}
		}
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, 16)
	for _, chunk := range ix.byID {
		if docFilter != nil {
			if _, ok := docFilter[chunk.DocumentID]; !ok {
				continue
			}
		}
		score := lexicalScore(queryText, chunk.Text, chunk.Section)
		if score > 0 {
			hits = append(hits, Hit{Chunk: chunk, Score: score})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.OrdinalIndex != hits[j].Chunk.OrdinalIndex {
			return hits[i].Chunk.OrdinalIndex < hits[j].Chunk.OrdinalIndex
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of currently visible chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}
