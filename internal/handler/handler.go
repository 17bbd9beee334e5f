package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/opsdash/internal/engine"
)

// maxBodySize caps request bodies, imports included.
const maxBodySize = 8 << 20

// Engines resolves the engine of a store.
// Satisfied by *service.Registry; narrow interface for testability.
type Engines interface {
	Get(ctx context.Context, storeID uuid.UUID) (*engine.Engine, error)
}

// storeEngine resolves the engine for the {sid} path parameter. On failure
// it writes the response and returns nil.
func storeEngine(engines Engines, w http.ResponseWriter, r *http.Request) *engine.Engine {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return nil
	}
	e, err := engines.Get(r.Context(), storeID)
	if err != nil {
		log.Printf("ERROR: open store %s: %v", storeID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil
	}
	return e
}

// decodeBody decodes a JSON request body into v. On failure it writes a 400
// and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeEngineError maps engine errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, engine.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	case errors.Is(err, engine.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already in progress"})
	case errors.Is(err, engine.ErrInvalidStatus),
		errors.Is(err, engine.ErrUnknownCollection),
		errors.Is(err, engine.ErrInvalidFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
