package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"document-chunk-index/models"
	"document-chunk-index/services"
)

// DocumentHandler serves document ingestion and lookup
type DocumentHandler struct {
	pipeline *services.IngestionPipeline
	store    services.Store
	logger   services.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(pipeline *services.IngestionPipeline, store services.Store, logger services.Logger) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline, store: store, logger: logger}
}

// Ingest handles POST /api/v1/documents
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), &req)
	if err != nil {
		h.logger.Error("ingestion failed", err, services.String("document_id", req.DocumentID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /api/v1/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	doc, err := h.store.GetDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ListChunks handles GET /api/v1/documents/{id}/chunks
func (h *DocumentHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	if _, err := h.store.GetDocument(r.Context(), documentID); err != nil {
		writeError(w, err)
		return
	}

	chunks, err := h.store.ListChunksByDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": documentID,
		"chunks":      chunks,
		"count":       len(chunks),
	})
}
