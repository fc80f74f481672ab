package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modelarena/modelarena/internal/database"
)

// writeJSON writes a JSON response with CORS headers matching the rest of
// the API.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeRepoError maps repository errors onto HTTP statuses. Unknown errors
// become opaque 500s; the caller is expected to have logged the detail.
func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
