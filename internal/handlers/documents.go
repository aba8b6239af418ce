package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studysource-ai/internal/contextutil"
	"studysource-ai/internal/index"
	"studysource-ai/internal/storage"
)

// DocumentsHandler handles the ingestion boundary: documents arrive already
// chunked and embedded, get persisted, and become searchable atomically.
type DocumentsHandler struct {
	chunkRepo  storage.ChunkStore
	index      *index.Index
	vectorSize int
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(chunkRepo storage.ChunkStore, ix *index.Index, vectorSize int) *DocumentsHandler {
	return &DocumentsHandler{
		chunkRepo:  chunkRepo,
		index:      ix,
		vectorSize: vectorSize,
	}
}

// IngestChunk is one pre-chunked, pre-embedded passage of a document.
//
// swagger:model IngestChunk
type IngestChunk struct {
	// Optional stable chunk ID; generated when omitted
	ID string `json:"id,omitempty"`
	// The chunk text
	Text string `json:"text"`
	// The chunk embedding, must match the configured vector size
	Embedding []float32 `json:"embedding"`
	// 1-based page number in the source document, 0 when unknown
	PageNumber int `json:"page_number,omitempty"`
	// Section heading the chunk belongs to
	Section string `json:"section,omitempty"`
	// Position of the chunk within the document
	OrdinalIndex int `json:"ordinal_index"`
}

// IngestRequest represents the HTTP request payload for document ingestion.
//
// swagger:model IngestRequest
type IngestRequest struct {
	// Stable document ID; re-ingesting the same ID replaces the document
	DocumentID string `json:"document_id"`
	// Human-readable document name shown in citations
	DocumentName string `json:"document_name"`
	// The document's chunks in ordinal order
	Chunks []IngestChunk `json:"chunks"`
}

// IngestResponse represents the HTTP response payload for document ingestion.
//
// swagger:model IngestResponse
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// DocumentListResponse lists the indexed documents.
//
// swagger:model DocumentListResponse
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

// DocumentInfo describes one indexed document.
//
// swagger:model DocumentInfo
type DocumentInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Ingest handles PUT /api/v1/documents.
//
// swagger:route PUT /api/v1/documents ingestDocument
//
// # Ingest a document
//
// Persists the document's chunks and makes them searchable. Replacement is
// all-or-nothing per document: concurrent queries see either the previous
// version or the new one, never a mix.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Document indexed
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
//	'400':
//	  description: Bad request (missing fields or wrong embedding dimension)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.DocumentName == "" {
		writeError(w, http.StatusBadRequest, "document_name is required")
		return
	}
	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "at least one chunk is required")
		return
	}
	for i, chunk := range req.Chunks {
		if chunk.Text == "" {
			writeError(w, http.StatusBadRequest, "chunk text cannot be empty")
			return
		}
		if len(chunk.Embedding) != h.vectorSize {
			logger.WarnContext(ctx, "rejected chunk with wrong embedding dimension",
				"chunk", i,
				"got", len(chunk.Embedding),
				"want", h.vectorSize,
			)
			writeError(w, http.StatusBadRequest, "chunk embedding dimension does not match the index")
			return
		}
	}

	doc := &storage.Document{
		ID:        req.DocumentID,
		Name:      req.DocumentName,
		CreatedAt: time.Now().UTC(),
	}

	records := make([]*storage.ChunkRecord, 0, len(req.Chunks))
	chunks := make([]*index.Chunk, 0, len(req.Chunks))
	for _, in := range req.Chunks {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		records = append(records, &storage.ChunkRecord{
			ID:           id,
			DocumentID:   req.DocumentID,
			OrdinalIndex: in.OrdinalIndex,
			PageNumber:   in.PageNumber,
			Section:      in.Section,
			Text:         in.Text,
			Embedding:    in.Embedding,
		})
		chunks = append(chunks, &index.Chunk{
			ID:           id,
			DocumentID:   req.DocumentID,
			DocumentName: req.DocumentName,
			Text:         in.Text,
			Embedding:    in.Embedding,
			PageNumber:   in.PageNumber,
			Section:      in.Section,
			OrdinalIndex: in.OrdinalIndex,
		})
	}

	// Persist first so a crash between the two steps loses searchability, not
	// data; the index is rebuilt from storage at startup.
	if err := h.chunkRepo.ReplaceDocument(ctx, doc, records); err != nil {
		logger.ErrorContext(ctx, "failed to persist document", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to persist document")
		return
	}

	if err := h.index.Upsert(ctx, chunks); err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			writeError(w, http.StatusBadRequest, "chunk embedding dimension does not match the index")
			return
		}
		logger.ErrorContext(ctx, "failed to index document", "document_id", req.DocumentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to index document")
		return
	}

	logger.InfoContext(ctx, "document ingested", "document_id", req.DocumentID, "chunks", len(chunks))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(IngestResponse{
		DocumentID: req.DocumentID,
		Chunks:     len(chunks),
	})
}

// Delete handles DELETE /api/v1/documents/{documentID}.
//
// swagger:route DELETE /api/v1/documents/{documentID} deleteDocument
//
// # Delete a document
//
// Removes the document from storage and from the searchable index. Deleting
// an unknown document is a no-op.
//
// ---
// produces:
// - application/json
// responses:
//
//	'204':
//	  description: Document removed
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "documentID is required")
		return
	}

	if err := h.chunkRepo.DeleteDocument(ctx, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to delete document", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}
	if err := h.index.Remove(ctx, documentID); err != nil {
		logger.ErrorContext(ctx, "failed to remove document from index", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove document from index")
		return
	}

	logger.InfoContext(ctx, "document deleted", "document_id", documentID)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/documents.
//
// swagger:route GET /api/v1/documents listDocuments
//
// # List indexed documents
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: The indexed documents
//	  schema:
//	    "$ref": "#/definitions/DocumentListResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := h.chunkRepo.ListDocuments(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	resp := DocumentListResponse{Documents: make([]DocumentInfo, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, DocumentInfo{
			ID:        doc.ID,
			Name:      doc.Name,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
