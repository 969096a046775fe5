package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"document-chunk-index/config"
	"document-chunk-index/database"
	"document-chunk-index/server"
	"document-chunk-index/services"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.LoadConfig()
	logger := services.NewStructuredLogger(services.ParseLogLevel(cfg.Logging.Level), os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}

	var metrics *services.Metrics
	if cfg.Metrics.Enabled {
		metrics = services.NewMetrics(nil)
	}

	store, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", err)
		os.Exit(1)
	}
	defer cleanup()

	var client services.EmbeddingClient
	if cfg.Embedding.Endpoint != "" {
		client = services.NewHTTPEmbeddingClient(&cfg.Embedding, logger)
	} else {
		logger.Warn("no embedding endpoint configured, using deterministic local vectors")
		client = services.NewMockEmbeddingClient(cfg.Embedding.Dimensions)
	}

	chunker := services.NewHierarchicalChunker(cfg.Chunking, logger)
	scorer := services.NewHeuristicQualityScorer()
	relationships := services.NewEdgeRelationshipManager(store, store, logger)
	embedder := services.NewMultiScaleEmbeddingGenerator(client, &cfg.Embedding, logger, metrics)
	pipeline := services.NewIngestionPipeline(store, chunker, scorer, relationships, embedder, logger, metrics)
	retrieval := services.NewCosineRetrievalEngine(store, client, cfg.Embedding.Model, cfg.Retrieval, logger, metrics)
	checker := services.NewHierarchyConsistencyChecker(store, logger, metrics)

	srv := server.New(&cfg.Server, server.Dependencies{
		Store:         store,
		Pipeline:      pipeline,
		Relationships: relationships,
		Retrieval:     retrieval,
		Checker:       checker,
		Logger:        logger,
		Metrics:       &cfg.Metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", err)
		os.Exit(1)
	case sig := <-stop:
		logger.Info("signal received", services.String("signal", sig.String()))
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildStore selects the storage backend: Postgres by default, in-memory
// when STORAGE_MODE=memory (standalone runs, demos)
func buildStore(cfg *config.Config, logger services.Logger) (services.Store, func(), error) {
	if os.Getenv("STORAGE_MODE") == "memory" {
		logger.Warn("using in-memory storage, data will not survive restarts")
		return services.NewMemoryStore(), func() {}, nil
	}

	db, err := database.NewPostgresService(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database",
		services.String("host", cfg.Database.Host),
		services.String("database", cfg.Database.Database))
	return database.NewSQLStore(db), db.Close, nil
}
