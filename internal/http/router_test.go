package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"studysource-ai/internal/index"
	"studysource-ai/internal/qa"
	qamocks "studysource-ai/internal/qa/mocks"
	"studysource-ai/internal/storage"
	storagemocks "studysource-ai/internal/storage/mocks"
	"studysource-ai/internal/vectorstore"
)

func newTestRouter(t *testing.T, ctrl *gomock.Controller) (http.Handler, *qamocks.MockEngine, *storagemocks.MockChunkStore) {
	t.Helper()

	store := vectorstore.NewMemoryStore()
	if err := store.EnsureCollection(context.Background(), "chunks", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine := qamocks.NewMockEngine(ctrl)
	repo := storagemocks.NewMockChunkStore(ctrl)

	router := NewRouter(&Deps{
		Engine:      engine,
		ChunkRepo:   repo,
		Index:       index.New(store, "chunks", 3),
		VectorStore: store,
		DB:          db,
		Collection:  "chunks",
		VectorSize:  3,
	})
	return router, engine, repo
}

func TestRouterAnswerRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, engine, _ := newTestRouter(t, ctrl)
	engine.EXPECT().
		AnswerQuestion(gomock.Any(), gomock.Any()).
		Return(qa.AnswerResponse{Status: qa.StatusOK, Answer: "answer"}, nil)

	body, _ := json.Marshal(map[string]string{"question": "q"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/answer", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRouterHealthRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, ctrl)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouterDocumentRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, repo := newTestRouter(t, ctrl)
	repo.EXPECT().ListDocuments(gomock.Any()).Return(nil, nil)
	repo.EXPECT().DeleteDocument(gomock.Any(), "doc-1").Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/v1/documents status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, ctrl)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
