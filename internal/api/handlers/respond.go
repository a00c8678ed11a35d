package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tablescout/tablescout/internal/apierr"
	"github.com/tablescout/tablescout/internal/logger"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a structured error response. Unstructured errors
// are logged and masked as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return
	}
	logger.ErrorContext(r.Context(), "Unhandled handler error", "error", err, "path", r.URL.Path)
	apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
}
