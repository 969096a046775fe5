package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"document-chunk-index/config"
	"document-chunk-index/handlers"
	"document-chunk-index/services"
)

// Server wires the HTTP surface over the service layer
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     services.Logger
}

// Dependencies carries everything the routes need
type Dependencies struct {
	Store         services.Store
	Pipeline      *services.IngestionPipeline
	Relationships services.RelationshipManager
	Retrieval     services.RetrievalEngine
	Checker       services.ConsistencyChecker
	Logger        services.Logger
	Metrics       *config.MetricsConfig
}

// New creates a configured server
func New(cfg *config.ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = services.NewDefaultLogger()
	}

	router := mux.NewRouter()
	s := &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	s.registerRoutes(deps)
	return s
}

func (s *Server) registerRoutes(deps Dependencies) {
	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(corsMiddleware)

	documentHandler := handlers.NewDocumentHandler(deps.Pipeline, deps.Store, s.logger)
	chunkHandler := handlers.NewChunkHandler(deps.Store, deps.Relationships, s.logger)
	searchHandler := handlers.NewSearchHandler(deps.Retrieval, s.logger)
	validationHandler := handlers.NewValidationHandler(deps.Checker, s.logger)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/documents", documentHandler.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}", documentHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/chunks", documentHandler.ListChunks).Methods(http.MethodGet)
	api.HandleFunc("/chunks/{id}", chunkHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/chunks/{id}", chunkHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/chunks/{id}/parent", chunkHandler.SetParent).Methods(http.MethodPut)
	api.HandleFunc("/search", searchHandler.Search).Methods(http.MethodPost)
	api.HandleFunc("/validation/report", validationHandler.Report).Methods(http.MethodGet)
	api.HandleFunc("/validation/documents/{id}", validationHandler.DocumentReport).Methods(http.MethodGet)
	api.HandleFunc("/health", s.healthHandler(deps.Store)).Methods(http.MethodGet)

	if deps.Metrics == nil || deps.Metrics.Enabled {
		endpoint := "/metrics"
		if deps.Metrics != nil && deps.Metrics.Endpoint != "" {
			endpoint = deps.Metrics.Endpoint
		}
		s.router.Handle(endpoint, promhttp.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) healthHandler(store services.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := store.HealthCheck(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			s.logger.Warn("health check failed", services.String("error", err.Error()))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}
}

// Start runs the server until it fails or is shut down
func (s *Server) Start() error {
	s.logger.Info("server starting", services.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
