package index

import "errors"

// ErrDimensionMismatch is returned when a vector's dimension differs from the
// dimension the index was built with. It signals embedding model drift and
// must never be retried silently.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Chunk is one indexed slice of a source document.
// Chunks are immutable once indexed; they are replaced wholesale when their
// document is re-ingested and removed only with their document.
type Chunk struct {
	ID           string
	DocumentID   string
	DocumentName string
	Text         string
	Embedding    []float32
	PageNumber   int
	Section      string
	OrdinalIndex int
}

// Hit pairs a chunk with a search score. Vector hits carry cosine similarity;
// keyword hits carry the lexical score.
type Hit struct {
	Chunk *Chunk
	Score float64
}
