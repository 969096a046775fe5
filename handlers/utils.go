package handlers

import (
	"encoding/json"
	"net/http"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps an error to the standard error body. AppErrors carry
// their own status code; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		writeJSON(w, appErr.GetHTTPStatusCode(), models.ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Error: err.Error(),
		Code:  errors.ErrCodeProcessingError,
	})
}

// decodeBody decodes a JSON request body into dst
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "invalid JSON body", err)
	}
	return nil
}
