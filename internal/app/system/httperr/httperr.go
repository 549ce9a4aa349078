// Package httperr writes JSON API errors.
package httperr

import (
	"encoding/json"
	"net/http"
)

// Body is the JSON error shape returned by every API endpoint.
type Body struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Write sends status with {"message","details"}. details comes from err.
func Write(w http.ResponseWriter, status int, message string, err error) {
	b := Body{Message: message}
	if err != nil {
		b.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
