package handlers

import (
	"net/http"

	"document-chunk-index/models"
	"document-chunk-index/services"
)

// SearchHandler serves similarity search
type SearchHandler struct {
	engine services.RetrievalEngine
	logger services.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(engine services.RetrievalEngine, logger services.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, logger: logger}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.EmbeddingType == "" {
		req.EmbeddingType = models.EmbeddingTypeContent
	}

	response, err := h.engine.Search(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}
