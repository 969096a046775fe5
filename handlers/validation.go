package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"document-chunk-index/services"
)

// ValidationHandler serves consistency reports
type ValidationHandler struct {
	checker services.ConsistencyChecker
	logger  services.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(checker services.ConsistencyChecker, logger services.Logger) *ValidationHandler {
	return &ValidationHandler{checker: checker, logger: logger}
}

// Report handles GET /api/v1/validation/report
func (h *ValidationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.CheckAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DocumentReport handles GET /api/v1/validation/documents/{id}
func (h *ValidationHandler) DocumentReport(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	findings, err := h.checker.CheckDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": documentID,
		"findings":    findings,
		"count":       len(findings),
	})
}
