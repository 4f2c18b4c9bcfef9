// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
)

// WriteError writes the failure body used across the API.
func WriteError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
