// Package handlers provides HTTP handlers and middleware for the Conline
// backend API.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/conline/conline/pkg/types"
)

// ErrorResponse is the JSON error envelope for all API errors.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondJSON writes data as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; nothing to do but note it.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes a structured error response.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

// identityFromRequest extracts the caller's identity from the headers the
// external identity provider injects. Returns nil for unauthenticated
// requests.
func identityFromRequest(r *http.Request) *types.Identity {
	uid := r.Header.Get("X-User-ID")
	if uid == "" {
		return nil
	}
	return &types.Identity{
		UID:  uid,
		Name: r.Header.Get("X-User-Name"),
	}
}
