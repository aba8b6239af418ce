package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore implements VectorStore with a brute-force in-memory scan.
// It is the default backend when no Qdrant URL is configured, and the backend
// used by tests. Cosine similarity over a few thousand chunks is fast enough
// for a single learner's library.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	vectorSize int
	points     map[string]Point
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

// EnsureCollection creates the collection if missing and validates the vector
// size if it already exists.
func (s *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection]
	if !ok {
		s.collections[collection] = &memoryCollection{
			vectorSize: vectorSize,
			points:     make(map[string]Point),
		}
		return nil
	}

	if existing.vectorSize != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, existing.vectorSize)
	}
	return nil
}

// CollectionExists checks if a collection exists.
func (s *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Upsert inserts or updates points in the collection.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q does not exist", collection)
	}

	for _, point := range points {
		if len(point.Vec) != coll.vectorSize {
			return fmt.Errorf("point %s has vector size %d, expected %d", point.ID, len(point.Vec), coll.vectorSize)
		}
	}
	for _, point := range points {
		coll.points[point.ID] = point
	}
	return nil
}

// Search returns the k points nearest to query by cosine similarity,
// optionally restricted to the given document IDs via point metadata.
func (s *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, documentIDs []string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", collection)
	}

	if len(query) != coll.vectorSize {
		return nil, fmt.Errorf("query vector size %d does not match collection size %d", len(query), coll.vectorSize)
	}

	var docFilter map[string]struct{}
	if len(documentIDs) > 0 {
		docFilter = make(map[string]struct{}, len(documentIDs))
		for _, id := range documentIDs {
			docFilter[id] = struct{}{}
		}
	}

	results := make([]SearchResult, 0, len(coll.points))
	for _, point := range coll.points {
		if docFilter != nil {
			docID, _ := point.Meta["document_id"].(string)
			if _, ok := docFilter[docID]; !ok {
				continue
			}
		}
		results = append(results, SearchResult{
			PointID: point.ID,
			Score:   cosineSimilarity(query, point.Vec),
			Meta:    point.Meta,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(coll.points, id)
	}
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float32 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
