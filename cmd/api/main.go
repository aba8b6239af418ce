package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"studysource-ai/internal/config"
	"studysource-ai/internal/http"
	"studysource-ai/internal/index"
	"studysource-ai/internal/provider"
	"studysource-ai/internal/qa"
	"studysource-ai/internal/storage"
	"studysource-ai/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers learner questions strictly from uploaded study material.
// Every answer sentence is cited and verified against the source passages
// before it reaches the caller.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: StudySource AI API
//   description: |
//     Question answering over indexed study documents with per-sentence
//     citations and hallucination detection. Answers that cannot be verified
//     against the uploaded material are withheld.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Select the vector search backend. Qdrant when configured, otherwise the
	// in-process store, which is enough for a single-node deployment.
	var vectorStore vectorstore.VectorStore
	if cfg.QdrantURL != "" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qdrantStore
		slog.Info("Using Qdrant vector store", "url", cfg.QdrantURL)
	} else {
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("Using in-memory vector store")
	}

	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		log.Fatalf("Failed to ensure vector collection: %v", err)
	}
	slog.Info("Vector collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)

	// Validate embedding client vector size (fail-fast). Dimension drift here
	// would poison every query, so refuse to start instead.
	embedder := provider.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	// Rebuild the chunk index from storage
	chunkIndex := index.New(vectorStore, cfg.QdrantCollection, cfg.VectorSize)
	records, err := chunkRepo.ListAll(ctx)
	if err != nil {
		log.Fatalf("Failed to load chunks for index rebuild: %v", err)
	}
	if len(records) > 0 {
		docs, err := chunkRepo.ListDocuments(ctx)
		if err != nil {
			log.Fatalf("Failed to list documents for index rebuild: %v", err)
		}
		docNames := make(map[string]string, len(docs))
		for _, doc := range docs {
			docNames[doc.ID] = doc.Name
		}

		chunks := make([]*index.Chunk, 0, len(records))
		for _, record := range records {
			chunks = append(chunks, &index.Chunk{
				ID:           record.ID,
				DocumentID:   record.DocumentID,
				DocumentName: docNames[record.DocumentID],
				Text:         record.Text,
				Embedding:    record.Embedding,
				PageNumber:   record.PageNumber,
				Section:      record.Section,
				OrdinalIndex: record.OrdinalIndex,
			})
		}
		if err := chunkIndex.Upsert(ctx, chunks); err != nil {
			log.Fatalf("Failed to rebuild index: %v", err)
		}
	}
	slog.Info("Chunk index rebuilt", "chunks", chunkIndex.Count())

	// Black-box model collaborators
	llmClient := provider.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMRequestsPerMinute)
	entailmentClient := provider.NewEntailmentClient(cfg.EntailmentBaseURL)
	estimator := provider.NewHeuristicTokenEstimator()

	// Answer pipeline
	engine := qa.NewEngine(
		qa.NewRetriever(chunkIndex, embedder, cfg.Retrieval),
		qa.NewAssembler(estimator, cfg.Context),
		qa.NewGenerator(llmClient, cfg.Generation),
		qa.NewVerifier(entailmentClient, estimator, cfg.Verify),
		cfg,
	)
	slog.Info("Answer engine initialized")

	deps := &http.Deps{
		Engine:      engine,
		ChunkRepo:   chunkRepo,
		Index:       chunkIndex,
		VectorStore: vectorStore,
		DB:          db,
		Collection:  cfg.QdrantCollection,
		VectorSize:  cfg.VectorSize,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
