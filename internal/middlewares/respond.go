package middlewares

import (
	"encoding/json"
	"net/http"
)

// writeError answers with the {"error": message} body every API response uses
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
