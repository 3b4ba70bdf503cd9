// Package handlers implements the JSON HTTP handlers for the mercado API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercado/internal/store"
)

// writeJSON serializes v with the given status. Encoding failures are
// logged; at that point headers are already written so nothing else can
// be sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps domain errors from the store layer to HTTP
// statuses. Anything unrecognized is treated as an internal error and
// logged without leaking details to the client.
func writeStoreError(w http.ResponseWriter, err error) {
	var dup *store.DuplicateSlugError
	var hier *store.InvalidHierarchyError
	var children *store.HasActiveChildrenError

	switch {
	case errors.Is(err, store.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, dup.Error())
	case errors.As(err, &hier):
		writeError(w, http.StatusUnprocessableEntity, hier.Error())
	case errors.As(err, &children):
		writeError(w, http.StatusConflict, children.Error())
	default:
		slog.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
