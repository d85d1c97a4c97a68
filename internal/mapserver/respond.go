package mapserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// storeError maps a store failure to 404 or 500.
func storeError(w http.ResponseWriter, err error) {
	if store.IsNotFound(err) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("mapserver: store operation failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
