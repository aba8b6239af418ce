package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"studysource-ai/internal/handlers"
	"studysource-ai/internal/index"
	"studysource-ai/internal/qa"
	"studysource-ai/internal/storage"
	"studysource-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine      qa.Engine
	ChunkRepo   storage.ChunkStore
	Index       *index.Index
	VectorStore vectorstore.VectorStore
	DB          *sql.DB
	Collection  string
	VectorSize  int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	answerHandler := handlers.NewAnswerHandler(deps.Engine)
	documentsHandler := handlers.NewDocumentsHandler(deps.ChunkRepo, deps.Index, deps.VectorSize)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DB, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/answer", answerHandler)
			r.Put("/documents", documentsHandler.Ingest)
			r.Get("/documents", documentsHandler.List)
			r.Delete("/documents/{documentID}", documentsHandler.Delete)
		})
	})

	return r
}
