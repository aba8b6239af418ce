package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document represents an uploaded source document.
type Document struct {
	ID        string // Stable document identifier from the ingestion pipeline
	Name      string // Display name used in citations
	CreatedAt time.Time
}

// ChunkRecord represents one indexed slice of a document.
// Chunks arrive from the ingestion pipeline with their embedding already
// computed and are immutable once stored.
type ChunkRecord struct {
	ID           string
	DocumentID   string
	OrdinalIndex int // Position within the document (starts at 0)
	PageNumber   int
	Section      string
	Text         string
	Embedding    []float32
}
