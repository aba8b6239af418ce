package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks studysource-ai/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ChunkStore defines the interface for chunk persistence.
type ChunkStore interface {
	// ReplaceDocument atomically replaces all chunks of a document in one
	// transaction, creating or updating the document row.
	ReplaceDocument(ctx context.Context, doc *Document, chunks []*ChunkRecord) error
	// DeleteDocument deletes a document and all of its chunks.
	DeleteDocument(ctx context.Context, documentID string) error
	// ListByDocument returns all chunks for a document, ordered by ordinal_index.
	ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error)
	// ListAll returns every stored chunk. Used to rebuild the index on startup.
	ListAll(ctx context.Context) ([]*ChunkRecord, error)
	// GetDocument returns a document by ID. Returns ErrNotFound if missing.
	GetDocument(ctx context.Context, documentID string) (*Document, error)
	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]*Document, error)
}

// ChunkRepo provides chunk persistence over SQLite.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceDocument atomically replaces all chunks of a document.
// The document row is upserted and any previous chunks are removed, so a
// re-ingested document never mixes old and new chunks.
func (r *ChunkRepo) ReplaceDocument(ctx context.Context, doc *Document, chunks []*ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		doc.ID, doc.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	for _, chunk := range chunks {
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, ordinal_index, page_number, section, text, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.OrdinalIndex, chunk.PageNumber, chunk.Section, chunk.Text, string(embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document; its chunks go with it via cascade.
func (r *ChunkRepo) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListByDocument returns all chunks for a document, ordered by ordinal_index.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, ordinal_index, page_number, section, text, embedding
		 FROM chunks WHERE document_id = ? ORDER BY ordinal_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return scanChunks(rows)
}

// ListAll returns every stored chunk, ordered by document then ordinal_index.
func (r *ChunkRepo) ListAll(ctx context.Context) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, document_id, ordinal_index, page_number, section, text, embedding
		 FROM chunks ORDER BY document_id, ordinal_index`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return scanChunks(rows)
}

// GetDocument returns a document by ID. Returns ErrNotFound if missing.
func (r *ChunkRepo) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM documents WHERE id = ?",
		documentID,
	).Scan(&doc.ID, &doc.Name, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents ordered by name.
func (r *ChunkRepo) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at FROM documents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

func scanChunks(rows *sql.Rows) ([]*ChunkRecord, error) {
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		var embedding string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.OrdinalIndex, &chunk.PageNumber, &chunk.Section, &chunk.Text, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}
