package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"document-chunk-index/models"
	"document-chunk-index/services"
)

// ChunkHandler serves chunk lookup with relationship views, reparenting
// and deletion
type ChunkHandler struct {
	store         services.Store
	relationships services.RelationshipManager
	logger        services.Logger
}

// NewChunkHandler creates a new chunk handler
func NewChunkHandler(store services.Store, relationships services.RelationshipManager, logger services.Logger) *ChunkHandler {
	return &ChunkHandler{store: store, relationships: relationships, logger: logger}
}

// Get handles GET /api/v1/chunks/{id}. Child and sibling sets are computed
// from the edge table on every read, never stored on the chunk.
func (h *ChunkHandler) Get(w http.ResponseWriter, r *http.Request) {
	chunkID := mux.Vars(r)["id"]

	chunk, err := h.store.GetChunk(r.Context(), chunkID)
	if err != nil {
		writeError(w, err)
		return
	}

	view := models.ChunkView{Chunk: chunk}
	if children, err := h.store.ListRelationshipsByType(r.Context(), chunkID, models.RelationshipTypeChild); err == nil {
		for _, edge := range children {
			view.ChildChunkIDs = append(view.ChildChunkIDs, edge.TargetChunkID)
		}
	}
	if siblings, err := h.store.ListRelationshipsByType(r.Context(), chunkID, models.RelationshipTypeSibling); err == nil {
		for _, edge := range siblings {
			view.SiblingChunkIDs = append(view.SiblingChunkIDs, edge.TargetChunkID)
		}
	}

	writeJSON(w, http.StatusOK, view)
}

// reparentRequest is the PUT /chunks/{id}/parent payload; a null parent ID
// detaches the chunk to root
type reparentRequest struct {
	ParentChunkID *string `json:"parent_chunk_id"`
}

// SetParent handles PUT /api/v1/chunks/{id}/parent
func (h *ChunkHandler) SetParent(w http.ResponseWriter, r *http.Request) {
	chunkID := mux.Vars(r)["id"]

	var req reparentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	chunk, err := h.store.GetChunk(r.Context(), chunkID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.relationships.SetParent(r.Context(), chunk, req.ParentChunkID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

// Delete handles DELETE /api/v1/chunks/{id}
func (h *ChunkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chunkID := mux.Vars(r)["id"]

	if err := h.store.DeleteChunk(r.Context(), chunkID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
