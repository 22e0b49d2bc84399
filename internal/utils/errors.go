package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is the JSON error body returned by the HTTP API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Retry hints that the same request may succeed later.
	Retry bool `json:"retry,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes an APIError body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, &APIError{Code: status, Message: message})
}
