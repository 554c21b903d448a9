package wshandler

import (
	"encoding/json"
	"net/http"
)

// errorResponse is written before the upgrade, while the connection still speaks plain HTTP.
func errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
