package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// writeAppError maps an apperr kind to a status. Only the user-safe message
// is written; causes stay in the logs.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.InvalidInput:
		status = http.StatusBadRequest
	case apperr.Unavailable:
		status = http.StatusServiceUnavailable
	case apperr.Unsupported:
		status = http.StatusNotImplemented
	default:
		writeError(w, status, "internal_error", "")
		return
	}
	writeError(w, status, string(kind), apperr.Message(err, string(kind)))
}
